package notify

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/zulandar/wapanel/internal/config"
)

// Colors used for chat messages.
const (
	ColorSuccess = "#2eb67d"
	ColorError   = "#e01e5a"
	ColorInfo    = "#1d9bd1"
)

// Field is a labelled value in a chat message.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Message is a platform-neutral chat post.
type Message struct {
	Title  string
	Body   string
	Color  string
	Fields []Field
}

// Sender posts a message to one chat platform.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Senders builds a sender for every enabled chat destination.
func Senders(cfg config.NotifyConfig) ([]Sender, error) {
	var out []Sender
	if cfg.Slack.Enabled() {
		s, err := NewSlack(SlackOpts{BotToken: cfg.Slack.BotToken, ChannelID: cfg.Slack.ChannelID})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if cfg.Discord.Enabled() {
		d, err := NewDiscord(DiscordOpts{BotToken: cfg.Discord.BotToken, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Broadcast sends msg through every sender and joins the failures.
func Broadcast(ctx context.Context, senders []Sender, msg Message) error {
	var errs []error
	for _, s := range senders {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DefaultChatTimeout bounds one chat post, rate-limit retries included.
const DefaultChatTimeout = 10 * time.Second

// Chat posts toasts to chat channels. Only errors are posted unless
// Successes is set. With Async the post runs in its own goroutine and the
// caller never waits on the chat platforms.
type Chat struct {
	Senders   []Sender
	Successes bool
	Source    string // shown as the message title
	Async     bool
	Timeout   time.Duration // per post; default DefaultChatTimeout
}

func (c Chat) Success(ctx context.Context, msg string) {
	if c.Successes {
		c.post(ctx, msg, ColorSuccess)
	}
}

func (c Chat) Error(ctx context.Context, msg string) {
	c.post(ctx, msg, ColorError)
}

func (c Chat) post(ctx context.Context, text, color string) {
	if len(c.Senders) == 0 {
		return
	}
	title := c.Source
	if title == "" {
		title = "wapanel"
	}
	m := Message{Title: title, Body: text, Color: color}
	if loc := LocationFrom(ctx); loc != "" {
		m.Fields = []Field{{Name: "Location", Value: loc, Short: true}}
	}
	if c.Async {
		go c.send(ctx, m)
		return
	}
	c.send(ctx, m)
}

func (c Chat) send(ctx context.Context, m Message) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := Broadcast(ctx, c.Senders, m); err != nil {
		log.Printf("notify: chat: %v", err)
	}
}
