package numbercheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"medichat/config"
	commandRepo "medichat/database/repository/command"
	messageRepo "medichat/database/repository/message"
	modsessionRepo "medichat/database/repository/modsession"
	phoneRepo "medichat/database/repository/phoneregistry"
	"medichat/models"
	"medichat/services/dispatch"
	"medichat/utils"

	"go.uber.org/zap"
)

var (
	// ErrBadPhone means the phone number could not be normalized.
	ErrBadPhone = errors.New("phone number is not valid")
	// ErrCheckFailed means the extension could not complete the check.
	ErrCheckFailed = errors.New("number check failed")
	// ErrCheckTimeout means the check command did not finish within the wait
	// window. The verdict may still land later via the command queue.
	ErrCheckTimeout = errors.New("number check timed out")
)

// Number checks jump the queue ahead of ordinary sends.
const checkCommandPriority = 10

// DefaultNumberCheckService implements NumberCheckService.
type DefaultNumberCheckService struct {
	Registry   phoneRepo.PhoneRegistry
	Commands   commandRepo.CommandRepository
	Messages   messageRepo.MessageRepository
	Sessions   modsessionRepo.ModeratorSessionRepository
	Dispatcher dispatch.DispatchService
}

func NewDefaultNumberCheckService(
	registry phoneRepo.PhoneRegistry,
	commands commandRepo.CommandRepository,
	messages messageRepo.MessageRepository,
	sessions modsessionRepo.ModeratorSessionRepository,
	dispatcher dispatch.DispatchService,
) *DefaultNumberCheckService {
	return &DefaultNumberCheckService{
		Registry:   registry,
		Commands:   commands,
		Messages:   messages,
		Sessions:   sessions,
		Dispatcher: dispatcher,
	}
}

// NormalizePhone canonicalizes a phone number to +<digits>. Separators are
// stripped; anything else rejects the number.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	trimmed := strings.TrimSpace(raw)
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrBadPhone
		}
	}
	if digits.Len() < 7 || digits.Len() > 15 {
		return "", ErrBadPhone
	}
	return "+" + digits.String(), nil
}

func (s *DefaultNumberCheckService) Cached(ctx context.Context, phone string) (*CheckResult, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	entry, err := s.Registry.Get(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to read phone registry: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	return &CheckResult{Phone: normalized, HasAccount: entry.HasAccount, Cached: true}, nil
}

func (s *DefaultNumberCheckService) Check(ctx context.Context, moderatorID, requestedBy, phone string) (*CheckResult, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	entry, err := s.Registry.Get(ctx, normalized)
	if err != nil {
		utils.GetLogger().Warn("Phone registry read failed, falling through to live check",
			zap.String("phone", normalized), zap.Error(err))
	}
	if entry != nil {
		return &CheckResult{Phone: normalized, HasAccount: entry.HasAccount, Cached: true}, nil
	}

	// Sending pauses while the check runs so the extension never interleaves
	// a live check with an outgoing message.
	now := time.Now()
	if _, err := s.Sessions.SetPause(moderatorID, models.PauseReasonNumberCheck, requestedBy, true, now); err != nil {
		return nil, fmt.Errorf("failed to pause sending for check: %w", err)
	}
	defer s.clearCheckPause(moderatorID)

	payload, err := json.Marshal(map[string]string{"phone": normalized})
	if err != nil {
		return nil, fmt.Errorf("failed to encode check payload: %w", err)
	}
	cmd, err := s.Dispatcher.Execute(ctx, moderatorID, dispatch.ExecuteInput{
		Type:     models.CommandTypeCheckNumber,
		Payload:  string(payload),
		Priority: checkCommandPriority,
	})
	if err != nil {
		return nil, err
	}

	done, err := s.Dispatcher.Await(ctx, cmd.ID)
	if err != nil {
		if errors.Is(err, dispatch.ErrWaitTimeout) || errors.Is(err, dispatch.ErrWaitAborted) {
			return nil, ErrCheckTimeout
		}
		return nil, err
	}
	if done.Status != models.CommandCompleted {
		return nil, fmt.Errorf("%w: %s", ErrCheckFailed, done.Result)
	}

	hasAccount, err := parseVerdict(done.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckFailed, err)
	}

	s.recordVerdict(ctx, normalized, requestedBy, hasAccount)
	return &CheckResult{Phone: normalized, HasAccount: hasAccount}, nil
}

// clearCheckPause lifts the number-check pause once no check commands remain
// in flight. Concurrent checks for the same moderator share the pause; the
// last one out turns off the light.
func (s *DefaultNumberCheckService) clearCheckPause(moderatorID string) {
	logger := utils.GetLogger()
	active, err := s.Commands.CountActiveByType(moderatorID, models.CommandTypeCheckNumber)
	if err != nil {
		logger.Error("Failed to count active check commands",
			zap.String("moderatorId", moderatorID), zap.Error(err))
		return
	}
	if active > 0 {
		return
	}
	if _, err := s.Sessions.ClearPause(moderatorID, []string{models.PauseReasonNumberCheck}, time.Now()); err != nil {
		logger.Error("Failed to clear check pause",
			zap.String("moderatorId", moderatorID), zap.Error(err))
	}
}

// recordVerdict writes the verdict through to the registry and fans it out to
// every message and patient sharing the number. Both writes are best effort;
// the caller already has the verdict in hand.
func (s *DefaultNumberCheckService) recordVerdict(ctx context.Context, phone, checkedBy string, hasAccount bool) {
	logger := utils.GetLogger()
	ttl := config.AppConfig.PhoneCachePosTTL
	if !hasAccount {
		ttl = config.AppConfig.PhoneCacheNegTTL
	}
	entry := &models.PhoneEntry{
		Phone:      phone,
		HasAccount: hasAccount,
		CheckedBy:  checkedBy,
		CheckedAt:  time.Now(),
	}
	if err := s.Registry.Put(ctx, entry, ttl); err != nil {
		logger.Error("Failed to cache number check verdict",
			zap.String("phone", phone), zap.Error(err))
	}
	updated, err := s.Messages.FanOutHasAccount(phone, hasAccount, time.Now())
	if err != nil {
		logger.Error("Failed to fan out number check verdict",
			zap.String("phone", phone), zap.Error(err))
		return
	}
	logger.Info("Number check verdict recorded",
		zap.String("phone", phone),
		zap.Bool("hasAccount", hasAccount),
		zap.Int64("recordsUpdated", updated))
}

type verdictPayload struct {
	HasAccount *bool `json:"hasAccount"`
	Exists     *bool `json:"exists"`
}

func parseVerdict(result string) (bool, error) {
	var v verdictPayload
	if err := json.Unmarshal([]byte(result), &v); err == nil {
		if v.HasAccount != nil {
			return *v.HasAccount, nil
		}
		if v.Exists != nil {
			return *v.Exists, nil
		}
	}
	switch strings.TrimSpace(strings.ToLower(result)) {
	case "true", "yes":
		return true, nil
	case "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized verdict %q", result)
}
