package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/infrastructure/external/lark"
)

// LarkNotifier delivers notifications as Lark IM messages addressed by email
type LarkNotifier struct {
	messenger *lark.Messenger
	renderer  *Renderer
	logger    *zap.Logger
}

var _ port.Notifier = (*LarkNotifier)(nil)

// NewLarkNotifier creates a Lark notifier
func NewLarkNotifier(messenger *lark.Messenger, renderer *Renderer, logger *zap.Logger) *LarkNotifier {
	return &LarkNotifier{
		messenger: messenger,
		renderer:  renderer,
		logger:    logger,
	}
}

// Notify renders the plain text variant and sends it with the subject as first line
func (n *LarkNotifier) Notify(ctx context.Context, recipient, template string, params map[string]interface{}) error {
	if recipient == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	msg, err := n.renderer.Render(template, params)
	if err != nil {
		return err
	}

	text := msg.Subject + "\n\n" + msg.Text
	if _, err := n.messenger.SendText(ctx, lark.ReceiveIDEmail, recipient, text); err != nil {
		return fmt.Errorf("send lark message: %w", err)
	}
	return nil
}

// Channel returns "lark"
func (n *LarkNotifier) Channel() string {
	return ChannelLark
}
