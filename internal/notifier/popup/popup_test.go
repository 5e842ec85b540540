package popup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkup(t *testing.T) {
	assert.Equal(t, "Tom &amp; Jerry&apos;s &lt;net&gt; &quot;5G&quot;", EscapeMarkup(`Tom & Jerry's <net> "5G"`))
	assert.Equal(t, "plain", EscapeMarkup("plain"))
}

func TestDesktopShowEscapes(t *testing.T) {
	var gotTitle, gotBody, gotIcon string
	d := &Desktop{
		Escape: true,
		notify: func(title, body, icon string) error {
			gotTitle, gotBody, gotIcon = title, body, icon
			return nil
		},
	}
	require.NoError(t, d.Show("WiFi Connected", "Connected to <A&B>", "/tmp/i.png"))
	assert.Equal(t, "WiFi Connected", gotTitle)
	assert.Equal(t, "Connected to &lt;A&amp;B&gt;", gotBody)
	assert.Equal(t, "/tmp/i.png", gotIcon)
}

func TestDesktopPassesErrors(t *testing.T) {
	boom := errors.New("no daemon")
	d := &Desktop{
		notify: func(string, string, string) error { return boom },
		beep:   func() error { return nil },
	}
	require.ErrorIs(t, d.Show("t", "b", ""), boom)
	require.NoError(t, d.Beep())
}
