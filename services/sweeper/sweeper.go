package sweeper

import (
	"context"
	"time"

	"medichat/config"
	commandRepo "medichat/database/repository/command"
	messageRepo "medichat/database/repository/message"
	modsessionRepo "medichat/database/repository/modsession"
	"medichat/models"
	"medichat/services/lease"
	"medichat/utils"

	"go.uber.org/zap"
)

// SweepReport counts what one reconciliation pass touched. All passes are
// idempotent; a sweep over an already-consistent store reports zeros.
type SweepReport struct {
	AckTimedOut    int `json:"ackTimedOut"`
	Expired        int `json:"expired"`
	Requeued       int `json:"requeued"`
	FailedMessages int `json:"failedMessages"`
	Duplicates     int `json:"duplicates"`
	StaleLeases    int `json:"staleLeases"`
	ClearedPauses  int `json:"clearedPauses"`
}

// SweeperService repairs drift between commands, messages, leases and pause
// state left behind by crashes, lost extensions, and abandoned waits.
type SweeperService interface {
	Run(ctx context.Context) (*SweepReport, error)
}

// DefaultSweeperService implements SweeperService.
type DefaultSweeperService struct {
	Commands commandRepo.CommandRepository
	Messages messageRepo.MessageRepository
	Sessions modsessionRepo.ModeratorSessionRepository
	Lease    lease.LeaseService
}

func NewDefaultSweeperService(
	commands commandRepo.CommandRepository,
	messages messageRepo.MessageRepository,
	sessions modsessionRepo.ModeratorSessionRepository,
	leaseSvc lease.LeaseService,
) *DefaultSweeperService {
	return &DefaultSweeperService{
		Commands: commands,
		Messages: messages,
		Sessions: sessions,
		Lease:    leaseSvc,
	}
}

// Run executes every pass. A pass that errors is logged and skipped; the
// remaining passes still run, and the next sweep retries.
func (s *DefaultSweeperService) Run(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}

	s.expireAckTimedOut(report)
	s.expireOverdue(report)
	s.reconcileSending(report)
	s.collapseDuplicates(report)
	s.revokeStaleLeases(ctx, report)
	s.clearOrphanedCheckPauses(report)

	utils.GetLogger().Info("Sweep completed",
		zap.Int("ackTimedOut", report.AckTimedOut),
		zap.Int("expired", report.Expired),
		zap.Int("requeued", report.Requeued),
		zap.Int("failedMessages", report.FailedMessages),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("staleLeases", report.StaleLeases),
		zap.Int("clearedPauses", report.ClearedPauses))
	return report, nil
}

// expireAckTimedOut expires commands the extension acknowledged but never
// finished. The device likely crashed mid-execution.
func (s *DefaultSweeperService) expireAckTimedOut(report *SweepReport) {
	cutoff := time.Now().Add(-config.AppConfig.CommandAckTimeout)
	stuck, err := s.Commands.ListAckTimedOut(cutoff)
	if err != nil {
		utils.GetLogger().Error("Sweep: failed to list ack-timed-out commands", zap.Error(err))
		return
	}
	for i := range stuck {
		if err := s.expireCommand(stuck[i].ID, "acknowledged but never completed"); err == nil {
			report.AckTimedOut++
		}
	}
}

// expireOverdue expires commands that outlived their own deadline in any
// non-terminal state.
func (s *DefaultSweeperService) expireOverdue(report *SweepReport) {
	overdue, err := s.Commands.ListExpiredNonTerminal(time.Now())
	if err != nil {
		utils.GetLogger().Error("Sweep: failed to list overdue commands", zap.Error(err))
		return
	}
	for i := range overdue {
		if err := s.expireCommand(overdue[i].ID, "command deadline passed"); err == nil {
			report.Expired++
		}
	}
}

func (s *DefaultSweeperService) expireCommand(id, result string) error {
	err := s.Commands.Expire(id, result, time.Now())
	if err != nil && err != commandRepo.ErrInvalidTransition {
		utils.GetLogger().Error("Sweep: failed to expire command",
			zap.String("commandId", id), zap.Error(err))
	}
	return err
}

// reconcileSending repairs messages stuck in sending whose in-flight command
// is gone or finished. A successful command marks the message sent; anything
// else requeues it until the attempt budget runs out.
func (s *DefaultSweeperService) reconcileSending(report *SweepReport) {
	logger := utils.GetLogger()
	sending, err := s.Messages.ListSendingWithCommand()
	if err != nil {
		logger.Error("Sweep: failed to list sending messages", zap.Error(err))
		return
	}
	now := time.Now()
	for i := range sending {
		msg := &sending[i]
		cmd, err := s.Commands.GetByID(msg.InFlightCommandID)
		if err != nil && err != commandRepo.ErrNotFound {
			logger.Error("Sweep: failed to load in-flight command",
				zap.String("messageId", msg.ID), zap.Error(err))
			continue
		}
		if cmd != nil && !cmd.Terminal() {
			continue
		}
		if cmd != nil && cmd.Status == models.CommandCompleted && cmd.ResultStatus == models.ResultSuccess {
			if err := s.Messages.MarkSentGroundTruth(msg.ID, now); err != nil {
				logger.Error("Sweep: failed to mark message sent",
					zap.String("messageId", msg.ID), zap.Error(err))
			}
			continue
		}
		if msg.Attempts >= config.AppConfig.MessageMaxAttempts {
			if err := s.Messages.MarkFailed(msg.ID, "attempt budget exhausted", now); err != nil {
				if err != messageRepo.ErrNotFound {
					logger.Error("Sweep: failed to fail message",
						zap.String("messageId", msg.ID), zap.Error(err))
				}
				continue
			}
			report.FailedMessages++
			continue
		}
		if err := s.Messages.Requeue(msg.ID, now); err != nil {
			if err != messageRepo.ErrNotFound {
				logger.Error("Sweep: failed to requeue message",
					zap.String("messageId", msg.ID), zap.Error(err))
			}
			continue
		}
		report.Requeued++
	}
}

// collapseDuplicates enforces at most one active command per message by
// expiring everything but the newest.
func (s *DefaultSweeperService) collapseDuplicates(report *SweepReport) {
	logger := utils.GetLogger()
	messageIDs, err := s.Commands.ListMessageIDsWithActive()
	if err != nil {
		logger.Error("Sweep: failed to list messages with active commands", zap.Error(err))
		return
	}
	for _, messageID := range messageIDs {
		active, err := s.Commands.ListActiveByMessage(messageID)
		if err != nil {
			logger.Error("Sweep: failed to list active commands",
				zap.String("messageId", messageID), zap.Error(err))
			continue
		}
		for i := 1; i < len(active); i++ {
			if err := s.expireCommand(active[i].ID, "superseded by a newer command"); err == nil {
				report.Duplicates++
			}
		}
	}
}

func (s *DefaultSweeperService) revokeStaleLeases(ctx context.Context, report *SweepReport) {
	revoked, err := s.Lease.ExpireStale(ctx)
	if err != nil {
		utils.GetLogger().Error("Sweep: failed to expire stale leases", zap.Error(err))
		return
	}
	report.StaleLeases = revoked
}

// clearOrphanedCheckPauses lifts number-check pauses whose check commands all
// finished or expired without anyone clearing the pause, typically because
// the waiting request was abandoned.
func (s *DefaultSweeperService) clearOrphanedCheckPauses(report *SweepReport) {
	logger := utils.GetLogger()
	paused, err := s.Sessions.ListPausedByReason(models.PauseReasonNumberCheck)
	if err != nil {
		logger.Error("Sweep: failed to list check-paused sessions", zap.Error(err))
		return
	}
	for i := range paused {
		moderatorID := paused[i].ModeratorID
		active, err := s.Commands.CountActiveByType(moderatorID, models.CommandTypeCheckNumber)
		if err != nil {
			logger.Error("Sweep: failed to count check commands",
				zap.String("moderatorId", moderatorID), zap.Error(err))
			continue
		}
		if active > 0 {
			continue
		}
		cleared, err := s.Sessions.ClearPause(moderatorID, []string{models.PauseReasonNumberCheck}, time.Now())
		if err != nil {
			logger.Error("Sweep: failed to clear check pause",
				zap.String("moderatorId", moderatorID), zap.Error(err))
			continue
		}
		if cleared {
			report.ClearedPauses++
		}
	}
}
