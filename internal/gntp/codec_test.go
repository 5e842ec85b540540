package gntp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeRegister(t *testing.T) {
	msg := string(EncodeRegister("WiFiManager", "data:image/png;base64,AAA=", []NotificationType{
		{Name: "WiFi Connected", Enabled: true},
		{Name: "Signal Changed", DisplayName: "Signal", Enabled: false, Icon: "file:///x.png"},
	}))

	want := "GNTP/1.0 REGISTER NONE\r\n" +
		"Application-Name: WiFiManager\r\n" +
		"Application-Icon: data:image/png;base64,AAA=\r\n" +
		"Notifications-Count: 2\r\n" +
		"\r\n" +
		"Notification-Name: WiFi Connected\r\n" +
		"Notification-Display-Name: WiFi Connected\r\n" +
		"Notification-Enabled: True\r\n" +
		"\r\n" +
		"Notification-Name: Signal Changed\r\n" +
		"Notification-Display-Name: Signal\r\n" +
		"Notification-Enabled: False\r\n" +
		"Notification-Icon: file:///x.png\r\n" +
		"\r\n" +
		"\r\n"
	assert.Equal(t, want, msg)
}

func TestEncodeNotify(t *testing.T) {
	msg := string(EncodeNotify(Notify{
		App:      "WiFiManager",
		Name:     "Signal Changed",
		Title:    "Signal Changed",
		Text:     "CafeWifi: 80% → 65% (degraded)",
		Priority: -1,
		Sticky:   true,
	}))

	assert.True(t, strings.HasPrefix(msg, "GNTP/1.0 NOTIFY NONE\r\n"))
	assert.Contains(t, msg, "Notification-Priority: -1\r\n")
	assert.Contains(t, msg, "Notification-Sticky: True\r\n")
	assert.Contains(t, msg, "Notification-Text: CafeWifi: 80% → 65% (degraded)\r\n")
	assert.NotContains(t, msg, "Notification-Icon")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n"))
	assert.Equal(t, 1, strings.Count(msg, "\r\n\r\n"))
}

func TestIsSuccess(t *testing.T) {
	assert.True(t, IsSuccess([]byte("GNTP/1.0 -OK NONE\r\n\r\n")))
	assert.False(t, IsSuccess(nil))
	assert.False(t, IsSuccess([]byte("GNTP/1.0 -ERROR NONE\r\nError-Code: 300\r\n")))
	assert.False(t, IsSuccess([]byte("GNTP/1.0 -O")))
}

func TestMediaType(t *testing.T) {
	cases := map[string]string{
		"a.png": "image/png", "a.JPG": "image/jpeg", "a.jpeg": "image/jpeg",
		"a.gif": "image/gif", "a.bmp": "image/bmp", "a.ico": "image/x-icon",
		"a.svg": "image/png", "noext": "image/png",
	}
	for in, want := range cases {
		assert.Equal(t, want, MediaType(in), in)
	}
}

func TestURIs(t *testing.T) {
	assert.Equal(t, "data:image/gif;base64,AQI=", DataURI("image/gif", []byte{1, 2}))
	assert.Empty(t, DataURI("image/png", nil))
	assert.Equal(t, "file:///tmp/icon.png", FileURI("/tmp/icon.png"))
	assert.Empty(t, FileURI(""))
}
