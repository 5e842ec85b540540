// Package popup shows desktop notifications through beeep.
package popup

import (
	"strings"

	"github.com/gen2brain/beeep"
)

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeMarkup escapes text for notification daemons that render markup.
func EscapeMarkup(s string) string { return markupEscaper.Replace(s) }

// Desktop shows notifications with the platform notifier.
type Desktop struct {
	// Escape applies EscapeMarkup to title and body (needed on Linux where
	// the body is interpreted as markup).
	Escape bool

	notify func(title, body, icon string) error
	beep   func() error
}

func New(escape bool) *Desktop {
	return &Desktop{
		Escape: escape,
		notify: func(title, body, icon string) error { return beeep.Notify(title, body, icon) },
		beep:   func() error { return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration) },
	}
}

func (d *Desktop) Show(title, body, iconPath string) error {
	if d.Escape {
		title, body = EscapeMarkup(title), EscapeMarkup(body)
	}
	return d.notify(title, body, iconPath)
}

func (d *Desktop) Beep() error { return d.beep() }
