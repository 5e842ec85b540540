package natspub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifimgr/internal/notifier"
)

type fakePub struct {
	subject string
	data    []byte
	flushed bool
}

func (f *fakePub) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return nil
}

func (f *fakePub) FlushTimeout(time.Duration) error {
	f.flushed = true
	return nil
}

func TestSendPublishesEnvelope(t *testing.T) {
	fp := &fakePub{}
	s := newSink(fp, "", "laptop")

	msg := notifier.Message{Kind: "connected", Title: "WiFi Connected", Body: "Connected to CafeWifi"}
	require.NoError(t, s.Send(context.Background(), msg))

	assert.Equal(t, DefaultSubject, fp.subject)
	assert.True(t, fp.flushed)

	var env Envelope
	require.NoError(t, json.Unmarshal(fp.data, &env))
	_, err := uuid.Parse(env.ID)
	require.NoError(t, err)
	assert.Equal(t, "laptop", env.Host)
	assert.Equal(t, msg.Body, env.Msg.Body)
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(" ", "", "")
	require.Error(t, err)
}
