package notification

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/port"
)

// SESAPI is the part of the SES client used to send mail
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESConfig holds the SES notifier settings
type SESConfig struct {
	Region string
	Sender string
}

// SESNotifier sends notifications as email through Amazon SES
type SESNotifier struct {
	client   SESAPI
	sender   string
	renderer *Renderer
	logger   *zap.Logger
}

var _ port.Notifier = (*SESNotifier)(nil)

// NewSESNotifier loads the default AWS configuration and creates an SES notifier
func NewSESNotifier(ctx context.Context, cfg SESConfig, renderer *Renderer, logger *zap.Logger) (*SESNotifier, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewSESNotifierWithClient(ses.NewFromConfig(awsCfg), cfg.Sender, renderer, logger), nil
}

// NewSESNotifierWithClient creates an SES notifier around an existing client
func NewSESNotifierWithClient(client SESAPI, sender string, renderer *Renderer, logger *zap.Logger) *SESNotifier {
	return &SESNotifier{
		client:   client,
		sender:   sender,
		renderer: renderer,
		logger:   logger,
	}
}

// Notify renders the template and sends it as a multipart email
func (n *SESNotifier) Notify(ctx context.Context, recipient, template string, params map[string]interface{}) error {
	if recipient == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	msg, err := n.renderer.Render(template, params)
	if err != nil {
		return err
	}

	raw, err := buildRawEmail(n.sender, recipient, msg)
	if err != nil {
		return fmt.Errorf("build email: %w", err)
	}

	resp, err := n.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(n.sender),
		Destinations: []string{recipient},
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		n.logger.Error("Failed to send email",
			zap.String("recipient", recipient),
			zap.String("template", template),
			zap.Error(err))
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("Email sent",
		zap.String("recipient", recipient),
		zap.String("template", template),
		zap.String("message_id", aws.ToString(resp.MessageId)))
	return nil
}

// Channel returns "ses"
func (n *SESNotifier) Channel() string {
	return ChannelSES
}

// buildRawEmail writes a multipart/alternative message with text and HTML parts
func buildRawEmail(from, to string, msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", writer.Boundary())

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		part, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(part)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
