package notifier

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// DefaultChannel receives the daily report link.
const DefaultChannel = "requests-latency-report"

// Slack posts plain-text messages with a bot token.
type Slack struct {
	api     *slack.Client
	channel string
	log     *zap.Logger
}

// NewSlack builds a notifier. apiURL overrides the Slack Web API base
// (must end with a slash); empty keeps the default.
func NewSlack(token, channel, apiURL string, log *zap.Logger) (*Slack, error) {
	if token == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	var opts []slack.Option
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &Slack{
		api:     slack.New(token, opts...),
		channel: channel,
		log:     log,
	}, nil
}

// Notify sends message to the configured channel once.
func (s *Slack) Notify(ctx context.Context, message string) error {
	channelID, ts, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(message, false))
	if err != nil {
		return fmt.Errorf("slack chat.postMessage to %s: %w", s.channel, err)
	}
	s.log.Info("slack message sent", zap.String("channel", channelID), zap.String("ts", ts))
	return nil
}
