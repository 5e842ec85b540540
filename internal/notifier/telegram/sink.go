// Package telegram forwards notifications to a Telegram chat.
package telegram

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"wifimgr/internal/notifier"
)

type Config struct {
	Token      string
	ChatID     int64
	ThreadID   int
	RatePerSec int
}

// sender is the part of *tele.Bot the sink uses.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Sink sends each message as one HTML-formatted Telegram message.
type Sink struct {
	cfg Config
	bot sender
}

// New builds a send-only bot. No request is made until the first Send.
func New(cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Sink{cfg: cfg, bot: b}, nil
}

func (s *Sink) Name() string { return "telegram" }

func (s *Sink) RatePerSec() float64 {
	if s.cfg.RatePerSec <= 0 {
		return 1
	}
	return float64(s.cfg.RatePerSec)
}

func (s *Sink) Send(ctx context.Context, m notifier.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		ThreadID:              s.cfg.ThreadID,
		DisableNotification:   m.Priority < 0,
	}
	_, err := s.bot.Send(&tele.Chat{ID: s.cfg.ChatID}, Format(m), opts)
	return err
}

// Format renders m as Telegram HTML.
func Format(m notifier.Message) string {
	var b strings.Builder
	if m.Priority >= 2 {
		b.WriteString("⚠️ ")
	}
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(m.Title))
	b.WriteString("</b>\n")
	b.WriteString(html.EscapeString(m.Body))
	if !m.At.IsZero() {
		b.WriteString("\n<i>")
		b.WriteString(m.At.Format(time.DateTime))
		b.WriteString("</i>")
	}
	return b.String()
}
