package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
)

const maxRetries = 3

// slackClient is the subset of the Slack web API used here.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackOpts configures a Slack sender.
type SlackOpts struct {
	BotToken  string
	ChannelID string
	Client    slackClient // for tests; built from BotToken when nil
}

// Slack posts messages as attachments to one channel.
type Slack struct {
	client    slackClient
	channelID string
	backoff   time.Duration
}

// NewSlack creates a Slack sender.
func NewSlack(opts SlackOpts) (*Slack, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("notify: slack bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("notify: slack channel is required")
	}
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.BotToken)
	}
	return &Slack{client: client, channelID: opts.ChannelID, backoff: time.Second}, nil
}

// Send posts msg to the channel.
func (s *Slack) Send(ctx context.Context, msg Message) error {
	options := []slackapi.MsgOption{
		slackapi.MsgOptionText(msg.Title, false),
		slackapi.MsgOptionAttachments(messageToAttachment(msg)),
	}
	err := s.retryOnRateLimit(ctx, func() error {
		_, _, postErr := s.client.PostMessageContext(ctx, s.channelID, options...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("notify: slack post to %s: %w", s.channelID, err)
	}
	return nil
}

func messageToAttachment(msg Message) slackapi.Attachment {
	att := slackapi.Attachment{
		Title: msg.Title,
		Text:  msg.Body,
		Color: msg.Color,
	}
	for _, f := range msg.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return att
}

// retryOnRateLimit retries fn on Slack rate limit errors, honouring the
// RetryAfter hint.
func (s *Slack) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * s.backoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
