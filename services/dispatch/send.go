package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medichat/config"
	messageRepo "medichat/database/repository/message"
	"medichat/models"
	"medichat/utils"

	"go.uber.org/zap"
)

// sendPayload is what the extension receives for a send_message command.
type sendPayload struct {
	MessageID string `json:"messageId"`
	Phone     string `json:"phone"`
	Body      string `json:"body"`
}

func (s *DefaultDispatchService) SendMessage(ctx context.Context, moderatorID, messageID string) (*SendResult, error) {
	msg, err := s.Messages.GetByID(messageID)
	if err != nil {
		if err == messageRepo.ErrNotFound {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	if msg == nil || msg.ModeratorID != moderatorID {
		return nil, ErrMessageNotFound
	}

	// The remote network is the source of truth. A message already marked
	// sent is never sent again, whatever the caller believes.
	if msg.Status == models.MessageSent {
		return &SendResult{Code: CodeSent, MessageID: messageID}, nil
	}

	session, err := s.Sessions.Get(moderatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load moderator session: %w", err)
	}
	if session.Paused {
		return &SendResult{Code: CodePaused, MessageID: messageID, Detail: session.PauseReason}, nil
	}
	if msg.IsPaused {
		return &SendResult{Code: CodePaused, MessageID: messageID, Detail: msg.PauseReason}, nil
	}

	// Duplicate suppression: an in-flight command for this message absorbs
	// the new request instead of spawning a second send.
	active, err := s.Commands.GetActiveByMessage(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to check in-flight commands: %w", err)
	}
	if active != nil {
		utils.GetLogger().Info("Send joined in-flight command",
			zap.String("messageId", messageID),
			zap.String("commandId", active.ID))
		return s.awaitSend(ctx, messageID, active.ID)
	}
	since := time.Now().Add(-config.AppConfig.RecentSuccessWindow)
	recent, err := s.Commands.GetRecentSuccessByMessage(messageID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to check recent completions: %w", err)
	}
	if recent != nil {
		return &SendResult{Code: CodeSent, MessageID: messageID, CommandID: recent.ID}, nil
	}

	payload, err := json.Marshal(sendPayload{MessageID: msg.ID, Phone: msg.Phone, Body: msg.Body})
	if err != nil {
		return nil, fmt.Errorf("failed to encode send payload: %w", err)
	}
	cmd, err := s.Execute(ctx, moderatorID, ExecuteInput{
		Type:      models.CommandTypeSendMessage,
		Payload:   string(payload),
		MessageID: msg.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrPendingAuth):
			return &SendResult{Code: CodePendingAuth, MessageID: messageID}, nil
		case errors.Is(err, ErrPendingNetwork):
			return &SendResult{Code: CodePendingNetwork, MessageID: messageID}, nil
		}
		return nil, err
	}

	if err := s.Messages.MarkSending(msg.ID, cmd.ID, time.Now()); err != nil {
		utils.GetLogger().Error("Failed to mark message sending",
			zap.String("messageId", msg.ID), zap.Error(err))
	}
	return s.awaitSend(ctx, messageID, cmd.ID)
}

// awaitSend waits out the command and folds its terminal state into a
// SendResult. Non-terminal outcomes leave the command running; the caller can
// poll the message later.
func (s *DefaultDispatchService) awaitSend(ctx context.Context, messageID, commandID string) (*SendResult, error) {
	cmd, err := s.Await(ctx, commandID)
	if err != nil {
		if errors.Is(err, ErrWaitTimeout) || errors.Is(err, ErrWaitAborted) {
			return &SendResult{Code: CodeWaiting, MessageID: messageID, CommandID: commandID}, nil
		}
		return nil, err
	}

	switch cmd.Status {
	case models.CommandCompleted:
		return &SendResult{Code: CodeSent, MessageID: messageID, CommandID: commandID}, nil
	case models.CommandFailed:
		return &SendResult{Code: CodeFailed, MessageID: messageID, CommandID: commandID, Detail: cmd.Result}, nil
	case models.CommandExpired:
		return &SendResult{Code: CodeFailed, MessageID: messageID, CommandID: commandID, Detail: "command expired before the extension completed it"}, nil
	}
	return &SendResult{Code: CodeWaiting, MessageID: messageID, CommandID: commandID}, nil
}
