package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// Drivers accepted by New.
const (
	DriverLog = "log"
	DriverSES = "ses"
)

// Message is a plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers messages to applicants.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// SESAPI is the subset of the SES client used for delivery.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends email through Amazon SES.
type SESNotifier struct {
	client SESAPI
	sender string
}

// NewSESNotifier wraps an SES client.
func NewSESNotifier(client SESAPI, sender string) *SESNotifier {
	return &SESNotifier{client: client, sender: sender}
}

// Send delivers msg through SES.
func (n *SESNotifier) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient required")
	}
	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{msg.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(n.sender),
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the message.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("notification", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// Options selects and configures a notifier driver.
type Options struct {
	Driver    string
	SESRegion string
	Sender    string
}

// New builds the notifier for opts.Driver, defaulting to the log driver.
func New(ctx context.Context, opts Options, logger *zap.Logger) (Notifier, error) {
	switch strings.ToLower(opts.Driver) {
	case DriverSES:
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.SESRegion))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return NewSESNotifier(ses.NewFromConfig(cfg), opts.Sender), nil
	case DriverLog, "":
		return NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown notification driver %q", opts.Driver)
	}
}
