package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/infrastructure/external/lark"
)

// Channel names
const (
	ChannelLog  = "log"
	ChannelSES  = "ses"
	ChannelLark = "lark"
)

// Config selects and configures the delivery channel
type Config struct {
	Channel       string
	Sender        string
	Region        string
	LarkAppID     string
	LarkAppSecret string
}

// New builds the notifier for the configured channel
func New(ctx context.Context, cfg Config, logger *zap.Logger) (port.Notifier, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	switch cfg.Channel {
	case "", ChannelLog:
		return NewLogNotifier(renderer, logger), nil
	case ChannelSES:
		n, err := NewSESNotifier(ctx, SESConfig{Region: cfg.Region, Sender: cfg.Sender}, renderer, logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	case ChannelLark:
		client := lark.NewSDKClient(lark.Config{AppID: cfg.LarkAppID, AppSecret: cfg.LarkAppSecret}, logger)
		return NewLarkNotifier(lark.NewMessenger(client, logger), renderer, logger), nil
	default:
		return nil, fmt.Errorf("unknown notification channel: %s", cfg.Channel)
	}
}

// LogNotifier renders notifications and writes them to the log instead of sending them
type LogNotifier struct {
	renderer *Renderer
	logger   *zap.Logger
}

var _ port.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier for development and tests
func NewLogNotifier(renderer *Renderer, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{renderer: renderer, logger: logger}
}

// Notify renders the template and logs the result
func (n *LogNotifier) Notify(ctx context.Context, recipient, template string, params map[string]interface{}) error {
	if recipient == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	msg, err := n.renderer.Render(template, params)
	if err != nil {
		return err
	}

	n.logger.Info("Notification",
		zap.String("channel", ChannelLog),
		zap.String("recipient", recipient),
		zap.String("template", template),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text))
	return nil
}

// Channel returns "log"
func (n *LogNotifier) Channel() string {
	return ChannelLog
}
