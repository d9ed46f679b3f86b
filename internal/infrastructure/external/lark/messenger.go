package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Receive id types accepted by the message API
const (
	ReceiveIDEmail  = "email"
	ReceiveIDOpenID = "open_id"
)

// MessageCreator is the message resource of the Lark IM API
type MessageCreator interface {
	Create(ctx context.Context, req *larkIm.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkIm.CreateMessageResp, error)
}

// MessageSender delivers a message body to a receiver id type
type MessageSender interface {
	Send(ctx context.Context, receiveIDType string, body *larkIm.CreateMessageReqBody) (*larkIm.CreateMessageResp, error)
}

// apiSender wraps the body into a create request of the message resource
type apiSender struct {
	messages MessageCreator
}

func (s apiSender) Send(ctx context.Context, receiveIDType string, body *larkIm.CreateMessageReqBody) (*larkIm.CreateMessageResp, error) {
	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(body).
		Build()
	return s.messages.Create(ctx, req)
}

// Messenger sends IM messages to users
type Messenger struct {
	sender MessageSender
	logger *zap.Logger
}

// NewMessenger creates a messenger on top of the SDK client
func NewMessenger(sdkClient *SDKClient, logger *zap.Logger) *Messenger {
	return NewMessengerWithAPI(sdkClient.GetClient().Im.Message, logger)
}

// NewMessengerWithAPI creates a messenger around a message resource
func NewMessengerWithAPI(messages MessageCreator, logger *zap.Logger) *Messenger {
	return NewMessengerWithSender(apiSender{messages: messages}, logger)
}

// NewMessengerWithSender creates a messenger around a body sender
func NewMessengerWithSender(sender MessageSender, logger *zap.Logger) *Messenger {
	return &Messenger{sender: sender, logger: logger}
}

// TextBody builds the body of a plain text message
func TextBody(receiveID, text string) (*larkIm.CreateMessageReqBody, error) {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message content: %w", err)
	}
	return larkIm.NewCreateMessageReqBodyBuilder().
		ReceiveId(receiveID).
		MsgType(larkIm.MsgTypeText).
		Content(string(content)).
		Build(), nil
}

// SendText sends a plain text message and returns the message id
func (m *Messenger) SendText(ctx context.Context, receiveIDType, receiveID, text string) (string, error) {
	if receiveID == "" {
		return "", fmt.Errorf("receiveID cannot be empty")
	}
	if text == "" {
		return "", fmt.Errorf("text cannot be empty")
	}

	body, err := TextBody(receiveID, text)
	if err != nil {
		return "", err
	}

	resp, err := m.sender.Send(ctx, receiveIDType, body)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("receive_id", receiveID))

	return messageID, nil
}
