package notify

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES tag names and values only allow these characters.
var sesTagUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SESSender delivers booking emails through SES simple messages. Simple
// messages carry no attachments, so the invite is dropped and the body's
// calendar link stands in for it.
type SESSender struct {
	client           sesAPI
	from             string
	configurationSet string
	logger           *logging.Logger
}

type SESConfig struct {
	FromEmail string
	FromName  string
	// ConfigurationSet routes delivery events (bounces, opens) when set.
	ConfigurationSet string
}

func NewSESSender(client sesAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SESSender{
		client:           client,
		from:             fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
		configurationSet: cfg.ConfigurationSet,
		logger:           logger,
	}
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: SES client not configured")
	}
	if len(msg.Attachments) > 0 {
		s.logger.Debug("ses drops attachments", "to", msg.To, "count", len(msg.Attachments))
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(msg.Subject),
				Body:    &types.Body{},
			},
		},
		EmailTags: sesTags(msg.Tags),
	}
	if msg.Body != "" {
		input.Content.Simple.Body.Text = utf8Content(msg.Body)
	}
	if msg.HTML != "" {
		input.Content.Simple.Body.Html = utf8Content(msg.HTML)
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("SES send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: SES send failed: %w", err)
	}
	s.logger.Info("email sent via SES", "to", msg.To, "subject", msg.Subject, "message_id", aws.ToString(output.MessageId))
	return nil
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}

// sesTags converts message tags in key order, replacing characters SES rejects.
func sesTags(tags map[string]string) []types.MessageTag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.MessageTag, 0, len(keys))
	for _, k := range keys {
		name := sesTagUnsafe.ReplaceAllString(k, "_")
		value := sesTagUnsafe.ReplaceAllString(tags[k], "_")
		if name == "" || value == "" {
			continue
		}
		out = append(out, types.MessageTag{Name: aws.String(name), Value: aws.String(value)})
	}
	return out
}

var _ EmailSender = (*SESSender)(nil)
