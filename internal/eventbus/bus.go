// Package eventbus is an in-memory, non-blocking fanout used to decouple the
// monitor from observers such as the journal and metrics.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by wifimgr.
const (
	TypeNotification = "wifi.event"    // Data: notifier event payload
	TypeTrend        = "wifi.trend"    // Data: Trend
	TypeScan         = "wifi.scan"     // Data: ScanSummary
	TypeTickError    = "wifi.tick_err" // Data: error string
	TypeHostDown     = "gntp.host_down"
	TypeSend         = "notifier.send" // Data: SendResult
)

// Event is a lightweight in-memory signal.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop events.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// Trend is a signal movement worth displaying but not notifying.
type Trend struct {
	SSID       string `json:"ssid"`
	From       int    `json:"from"`
	To         int    `json:"to"`
	Background bool   `json:"background"`
}

// ScanSummary describes one periodic scan.
type ScanSummary struct {
	Visible int `json:"visible"`
	New     int `json:"new"`
}

// SendResult describes one delivery attempt to a channel.
type SendResult struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns a simple in-memory fanout bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Hold the read lock while sending so unsubscribe cannot close a
	// channel mid-send; sends never block.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(Event) {}
func (Nop) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	close(ch)
	return ch, func() {}
}
