package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFanout(t *testing.T) {
	b := New()
	a, unsubA := b.Subscribe(4)
	c, unsubC := b.Subscribe(4)
	defer unsubC()

	b.Publish(Event{Type: TypeTrend, Data: Trend{SSID: "A", From: 40, To: 60}})

	ea := <-a
	ec := <-c
	assert.Equal(t, TypeTrend, ea.Type)
	assert.False(t, ea.Time.IsZero())
	assert.Equal(t, ea, ec)

	unsubA()
	unsubA()
	_, ok := <-a
	require.False(t, ok)
	b.Publish(Event{Type: TypeScan})
}

func TestSlowSubscriberDrops(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "one"})
	b.Publish(Event{Type: "two"})
	assert.Equal(t, "one", (<-ch).Type)
	assert.Len(t, ch, 0)
}
