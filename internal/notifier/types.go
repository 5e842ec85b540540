package notifier

import (
	"context"
	"time"

	"wifimgr/internal/config"
)

// Kind classifies an event.
type Kind int

const (
	Connected Kind = iota
	Disconnected
	Changed
	NewNetwork
	SignalChanged
	Status
	Test
)

var kindNames = [...]string{"connected", "disconnected", "changed", "new_network", "signal_changed", "status", "test"}

var kindTitles = [...]string{
	config.TitleConnected,
	config.TitleDisconnected,
	config.TitleChanged,
	config.TitleNewNetwork,
	config.TitleSignalChanged,
	config.TitleStatus,
	config.TitleTest,
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Title is the canonical title, also used as the GNTP notification name.
func (k Kind) Title() string {
	if k < 0 || int(k) >= len(kindTitles) {
		return ""
	}
	return kindTitles[k]
}

// Kinds lists every kind in registration order.
func Kinds() []Kind {
	return []Kind{Connected, Disconnected, Changed, NewNetwork, SignalChanged, Status, Test}
}

// Event is one user-facing notification. It is not retained after Dispatch.
type Event struct {
	Kind  Kind
	Title string
	Body  string
}

// NewEvent builds an event with the kind's canonical title.
func NewEvent(k Kind, body string) Event {
	return Event{Kind: k, Title: k.Title(), Body: body}
}

// Message is the resolved form of an Event handed to sinks and the event bus.
type Message struct {
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Priority int       `json:"priority"`
	Sticky   bool      `json:"sticky"`
	At       time.Time `json:"at"`
}

// Popup shows a local desktop notification. Implementations should not
// block for long; errors fall back to Beep.
type Popup interface {
	Show(title, body, iconPath string) error
	Beep() error
}

// Sink is an extra delivery channel that receives every dispatched message.
type Sink interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

// RatedSink optionally caps how often a sink is called.
type RatedSink interface {
	Sink
	RatePerSec() float64
}

// Recorder receives delivery metrics. All methods must be cheap.
type Recorder interface {
	Event(kind string)
	Send(channel string, ok bool)
	HostsAvailable(n int)
}

type nopRecorder struct{}

func (nopRecorder) Event(string)       {}
func (nopRecorder) Send(string, bool)  {}
func (nopRecorder) HostsAvailable(int) {}

// HostStatus is a point-in-time view of one GNTP host.
type HostStatus struct {
	Host      string `json:"host"`
	Loopback  bool   `json:"loopback"`
	Available bool   `json:"available"`
}

// TestResult is the outcome of Router.Test for one channel.
type TestResult struct {
	Channel string
	Err     error
}
