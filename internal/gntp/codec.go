// Package gntp implements the client side of the Growl Notification
// Transport Protocol: REGISTER/NOTIFY encoding, response checking and
// one short-lived TCP session per request.
package gntp

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	Version     = "GNTP/1.0"
	DefaultPort = 23053

	successMarker = Version + " -OK"
	crlf          = "\r\n"
)

// NotificationType is one entry of a REGISTER message.
type NotificationType struct {
	Name        string
	DisplayName string // defaults to Name
	Enabled     bool
	Icon        string // URI; empty omits the header
}

// Notify is the content of one NOTIFY message.
type Notify struct {
	App      string
	Name     string
	Title    string
	Text     string
	Priority int
	Sticky   bool
	Icon     string // file:// or data: URI; empty omits the header
}

// EncodeRegister builds a REGISTER request. appIcon is a URI (or empty).
func EncodeRegister(app, appIcon string, types []NotificationType) []byte {
	var b bytes.Buffer
	b.WriteString(Version + " REGISTER NONE" + crlf)
	header(&b, "Application-Name", app)
	if appIcon != "" {
		header(&b, "Application-Icon", appIcon)
	}
	header(&b, "Notifications-Count", strconv.Itoa(len(types)))
	b.WriteString(crlf)

	for _, t := range types {
		display := t.DisplayName
		if display == "" {
			display = t.Name
		}
		header(&b, "Notification-Name", t.Name)
		header(&b, "Notification-Display-Name", display)
		header(&b, "Notification-Enabled", boolText(t.Enabled))
		if t.Icon != "" {
			header(&b, "Notification-Icon", t.Icon)
		}
		b.WriteString(crlf)
	}
	b.WriteString(crlf)
	return b.Bytes()
}

// EncodeNotify builds a NOTIFY request.
func EncodeNotify(n Notify) []byte {
	var b bytes.Buffer
	b.WriteString(Version + " NOTIFY NONE" + crlf)
	header(&b, "Application-Name", n.App)
	header(&b, "Notification-Name", n.Name)
	header(&b, "Notification-Title", n.Title)
	header(&b, "Notification-Text", n.Text)
	header(&b, "Notification-Priority", strconv.Itoa(n.Priority))
	header(&b, "Notification-Sticky", boolText(n.Sticky))
	if n.Icon != "" {
		header(&b, "Notification-Icon", n.Icon)
	}
	b.WriteString(crlf)
	return b.Bytes()
}

// IsSuccess reports whether a response carries the -OK status.
// Anything else, including an empty or truncated reply, is a failure.
func IsSuccess(resp []byte) bool {
	return bytes.Contains(resp, []byte(successMarker))
}

func header(b *bytes.Buffer, k, v string) {
	b.WriteString(k)
	b.WriteString(": ")
	b.WriteString(v)
	b.WriteString(crlf)
}

func boolText(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".ico":  "image/x-icon",
}

// MediaType maps an icon file extension to its media type (default image/png).
func MediaType(path string) string {
	if mt, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "image/png"
}

// DataURI inlines data as a base64 data URI.
func DataURI(mediaType string, data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FileURI references a local file, e.g. file:///home/u/icon.png.
func FileURI(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + p
}
