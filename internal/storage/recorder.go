package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wifimgr/internal/eventbus"
	"wifimgr/internal/notifier"
	logx "wifimgr/pkg/logx"
)

// Record appends every dispatched notification seen on bus until ctx is
// done. Write errors are logged and the entry is dropped.
func Record(ctx context.Context, bus eventbus.Bus, j Journal, log logx.Logger) error {
	ch, unsub := bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if ev.Type != eventbus.TypeNotification {
				continue
			}
			m, ok := ev.Data.(notifier.Message)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
			err := j.Append(wctx, EntryFrom(m))
			cancel()
			if err != nil {
				log.Warn("journal append failed", logx.Err(err))
			}
		}
	}
}

// EntryFrom assigns a fresh id to m.
func EntryFrom(m notifier.Message) Entry {
	return Entry{
		ID:       uuid.NewString(),
		At:       m.At,
		Kind:     m.Kind,
		Title:    m.Title,
		Body:     m.Body,
		Priority: m.Priority,
		Sticky:   m.Sticky,
	}
}
