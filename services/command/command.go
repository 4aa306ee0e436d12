package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	commandRepo "medichat/database/repository/command"
	messageRepo "medichat/database/repository/message"
	"medichat/models"
	"medichat/utils"

	"go.uber.org/zap"
)

var (
	// ErrCommandNotFound covers both unknown ids and commands owned by a
	// different moderator; callers cannot tell the two apart.
	ErrCommandNotFound = errors.New("command not found")
	// ErrCommandFinished means the command already reached a terminal state.
	ErrCommandFinished = errors.New("command already finished")
	// ErrBadResultStatus means the reported result status is not recognized.
	ErrBadResultStatus = errors.New("unknown result status")
)

const defaultPollLimit = 10

// DefaultCommandService implements CommandService.
type DefaultCommandService struct {
	Commands commandRepo.CommandRepository
	Messages messageRepo.MessageRepository
}

func NewDefaultCommandService(commands commandRepo.CommandRepository, messages messageRepo.MessageRepository) *DefaultCommandService {
	return &DefaultCommandService{Commands: commands, Messages: messages}
}

func (s *DefaultCommandService) Poll(ctx context.Context, moderatorID string, limit int64) ([]models.Command, error) {
	if limit <= 0 {
		limit = defaultPollLimit
	}
	now := time.Now()
	cmds, err := s.Commands.ListPending(moderatorID, limit, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	for i := range cmds {
		if cmds[i].Status != models.CommandPending {
			continue
		}
		if err := s.Commands.MarkSent(cmds[i].ID, now); err != nil {
			// Lost the race to a concurrent poll or a sweeper expiry.
			// The next poll sees the true state.
			if err != commandRepo.ErrInvalidTransition {
				utils.GetLogger().Error("Failed to mark command sent",
					zap.String("commandId", cmds[i].ID), zap.Error(err))
			}
			continue
		}
		cmds[i].Status = models.CommandSent
		cmds[i].SentAt = &now
	}
	return cmds, nil
}

func (s *DefaultCommandService) Acknowledge(ctx context.Context, moderatorID, commandID string) error {
	cmd, err := s.owned(moderatorID, commandID)
	if err != nil {
		return err
	}
	if cmd.Terminal() {
		return ErrCommandFinished
	}
	if err := s.Commands.Acknowledge(commandID, time.Now()); err != nil {
		if err == commandRepo.ErrInvalidTransition {
			return ErrCommandFinished
		}
		return fmt.Errorf("failed to acknowledge command: %w", err)
	}
	return nil
}

func (s *DefaultCommandService) Complete(ctx context.Context, moderatorID, commandID string, input CompletionInput) (*models.Command, error) {
	if input.ResultStatus != models.ResultSuccess && input.ResultStatus != models.ResultFailure {
		return nil, ErrBadResultStatus
	}
	cmd, err := s.owned(moderatorID, commandID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if input.ResultStatus == models.ResultFailure {
		if err := s.failCommand(cmd, input.Result, now); err != nil {
			return nil, err
		}
		cmd.Status = models.CommandFailed
	} else {
		if err := s.Commands.Complete(commandID, models.ResultSuccess, input.Result, now); err != nil {
			if err == commandRepo.ErrInvalidTransition {
				return nil, ErrCommandFinished
			}
			return nil, fmt.Errorf("failed to complete command: %w", err)
		}
		cmd.Status = models.CommandCompleted
		s.applySuccess(cmd, now)
	}
	cmd.ResultStatus = input.ResultStatus
	cmd.Result = input.Result
	cmd.CompletedAt = &now
	return cmd, nil
}

func (s *DefaultCommandService) Fail(ctx context.Context, moderatorID, commandID, reason string) error {
	cmd, err := s.owned(moderatorID, commandID)
	if err != nil {
		return err
	}
	return s.failCommand(cmd, reason, time.Now())
}

func (s *DefaultCommandService) Get(ctx context.Context, moderatorID, commandID string) (*models.Command, error) {
	return s.owned(moderatorID, commandID)
}

func (s *DefaultCommandService) owned(moderatorID, commandID string) (*models.Command, error) {
	cmd, err := s.Commands.GetByID(commandID)
	if err != nil {
		if err == commandRepo.ErrNotFound {
			return nil, ErrCommandNotFound
		}
		return nil, fmt.Errorf("failed to load command: %w", err)
	}
	if cmd == nil || cmd.ModeratorID != moderatorID {
		return nil, ErrCommandNotFound
	}
	return cmd, nil
}

func (s *DefaultCommandService) failCommand(cmd *models.Command, reason string, now time.Time) error {
	if err := s.Commands.Fail(cmd.ID, reason, now); err != nil {
		if err == commandRepo.ErrInvalidTransition {
			return ErrCommandFinished
		}
		return fmt.Errorf("failed to fail command: %w", err)
	}
	if cmd.Type == models.CommandTypeSendMessage && cmd.MessageID != "" {
		if err := s.Messages.MarkFailed(cmd.MessageID, reason, now); err != nil && err != messageRepo.ErrNotFound {
			utils.GetLogger().Error("Failed to mark message failed",
				zap.String("messageId", cmd.MessageID), zap.Error(err))
		}
	}
	utils.GetLogger().Info("Command failed",
		zap.String("commandId", cmd.ID),
		zap.String("type", cmd.Type),
		zap.String("reason", reason))
	return nil
}

// applySuccess propagates a successful send to the linked message. The marker
// matches on id alone: even if the message was requeued or locally failed in
// the meantime, a delivery on the remote network wins.
func (s *DefaultCommandService) applySuccess(cmd *models.Command, now time.Time) {
	if cmd.Type != models.CommandTypeSendMessage || cmd.MessageID == "" {
		return
	}
	if err := s.Messages.MarkSentGroundTruth(cmd.MessageID, now); err != nil && err != messageRepo.ErrNotFound {
		utils.GetLogger().Error("Failed to mark message sent",
			zap.String("messageId", cmd.MessageID), zap.Error(err))
	}
}
