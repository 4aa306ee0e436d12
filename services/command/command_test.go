package command

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	commandRepo "medichat/database/repository/command"
	messageRepo "medichat/database/repository/message"
	"medichat/models"
)

type fakeCommandRepo struct {
	mu       sync.Mutex
	commands map[string]*models.Command
}

func newFakeCommandRepo() *fakeCommandRepo {
	return &fakeCommandRepo{commands: make(map[string]*models.Command)}
}

func (r *fakeCommandRepo) Create(cmd *models.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *cmd
	r.commands[cmd.ID] = &cp
	return nil
}

func (r *fakeCommandRepo) GetByID(id string) (*models.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.commands[id]
	if !ok {
		return nil, commandRepo.ErrNotFound
	}
	cp := *cmd
	return &cp, nil
}

func (r *fakeCommandRepo) ListPending(moderatorID string, limit int64, now time.Time) ([]models.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Command
	for _, cmd := range r.commands {
		if cmd.ModeratorID != moderatorID {
			continue
		}
		if cmd.Status != models.CommandPending && cmd.Status != models.CommandSent {
			continue
		}
		if !cmd.ExpiresAt.After(now) {
			continue
		}
		out = append(out, *cmd)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeCommandRepo) transition(id string, from []string, apply func(*models.Command)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.commands[id]
	if !ok {
		return commandRepo.ErrNotFound
	}
	allowed := false
	for _, s := range from {
		if cmd.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return commandRepo.ErrInvalidTransition
	}
	apply(cmd)
	return nil
}

func (r *fakeCommandRepo) MarkSent(id string, at time.Time) error {
	return r.transition(id, []string{models.CommandPending}, func(cmd *models.Command) {
		cmd.Status = models.CommandSent
		cmd.SentAt = &at
	})
}

func (r *fakeCommandRepo) Acknowledge(id string, at time.Time) error {
	return r.transition(id, []string{models.CommandPending, models.CommandSent}, func(cmd *models.Command) {
		cmd.Status = models.CommandAcked
		cmd.AckedAt = &at
	})
}

func (r *fakeCommandRepo) Complete(id, resultStatus, result string, at time.Time) error {
	return r.transition(id, models.ActiveCommandStatuses, func(cmd *models.Command) {
		cmd.Status = models.CommandCompleted
		cmd.ResultStatus = resultStatus
		cmd.Result = result
		cmd.CompletedAt = &at
	})
}

func (r *fakeCommandRepo) Fail(id, reason string, at time.Time) error {
	return r.transition(id, models.ActiveCommandStatuses, func(cmd *models.Command) {
		cmd.Status = models.CommandFailed
		cmd.ResultStatus = models.ResultFailure
		cmd.Result = reason
		cmd.CompletedAt = &at
	})
}

func (r *fakeCommandRepo) Expire(id, result string, at time.Time) error {
	return r.transition(id, models.ActiveCommandStatuses, func(cmd *models.Command) {
		cmd.Status = models.CommandExpired
		cmd.ResultStatus = models.ResultTimeout
		cmd.Result = result
		cmd.CompletedAt = &at
	})
}

func (r *fakeCommandRepo) GetActiveByMessage(messageID string) (*models.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *models.Command
	for _, cmd := range r.commands {
		if cmd.MessageID != messageID || cmd.Terminal() {
			continue
		}
		if newest == nil || cmd.CreatedAt.After(newest.CreatedAt) {
			newest = cmd
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (r *fakeCommandRepo) ListActiveByMessage(messageID string) ([]models.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Command
	for _, cmd := range r.commands {
		if cmd.MessageID == messageID && !cmd.Terminal() {
			out = append(out, *cmd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeCommandRepo) GetRecentSuccessByMessage(messageID string, since time.Time) (*models.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cmd := range r.commands {
		if cmd.MessageID != messageID || cmd.Status != models.CommandCompleted {
			continue
		}
		if cmd.ResultStatus == models.ResultSuccess && cmd.CompletedAt != nil && !cmd.CompletedAt.Before(since) {
			cp := *cmd
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCommandRepo) ListAckTimedOut(cutoff time.Time) ([]models.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Command
	for _, cmd := range r.commands {
		if cmd.Status == models.CommandAcked && cmd.AckedAt != nil && cmd.AckedAt.Before(cutoff) {
			out = append(out, *cmd)
		}
	}
	return out, nil
}

func (r *fakeCommandRepo) ListExpiredNonTerminal(now time.Time) ([]models.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Command
	for _, cmd := range r.commands {
		if !cmd.Terminal() && now.After(cmd.ExpiresAt) {
			out = append(out, *cmd)
		}
	}
	return out, nil
}

func (r *fakeCommandRepo) CountActiveByType(moderatorID, cmdType string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, cmd := range r.commands {
		if cmd.ModeratorID == moderatorID && cmd.Type == cmdType && !cmd.Terminal() {
			n++
		}
	}
	return n, nil
}

func (r *fakeCommandRepo) ListMessageIDsWithActive() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	for _, cmd := range r.commands {
		if cmd.MessageID != "" && !cmd.Terminal() {
			seen[cmd.MessageID] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*models.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]*models.Message)}
}

func (r *fakeMessageRepo) GetByID(id string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, messageRepo.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (r *fakeMessageRepo) MarkSending(id, commandID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return messageRepo.ErrNotFound
	}
	msg.Status = models.MessageSending
	msg.InFlightCommandID = commandID
	msg.Attempts++
	return nil
}

func (r *fakeMessageRepo) MarkSentGroundTruth(id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return messageRepo.ErrNotFound
	}
	msg.Status = models.MessageSent
	msg.SentAt = &at
	msg.InFlightCommandID = ""
	msg.IsPaused = false
	msg.PauseReason = ""
	msg.LastError = ""
	return nil
}

func (r *fakeMessageRepo) MarkFailed(id, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return messageRepo.ErrNotFound
	}
	if msg.Status != models.MessageSending {
		return messageRepo.ErrNotFound
	}
	msg.Status = models.MessageFailed
	msg.LastError = reason
	msg.InFlightCommandID = ""
	return nil
}

func (r *fakeMessageRepo) Requeue(id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return messageRepo.ErrNotFound
	}
	msg.Status = models.MessageQueued
	msg.InFlightCommandID = ""
	return nil
}

func (r *fakeMessageRepo) PauseByReason(moderatorID, reason string, at time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeMessageRepo) UnpauseByReason(moderatorID string, reasons []string, at time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeMessageRepo) ListSendingWithCommand() ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Message
	for _, msg := range r.messages {
		if msg.Status == models.MessageSending && msg.InFlightCommandID != "" {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) FanOutHasAccount(phone string, hasAccount bool, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, msg := range r.messages {
		if msg.Phone == phone {
			msg.HasAccount = &hasAccount
			n++
		}
	}
	return n, nil
}

func seedCommand(repo *fakeCommandRepo, id, moderatorID, cmdType, messageID, status string) {
	now := time.Now()
	repo.Create(&models.Command{
		ID:          id,
		ModeratorID: moderatorID,
		Type:        cmdType,
		MessageID:   messageID,
		Priority:    models.DefaultCommandPriority,
		Status:      status,
		CreatedAt:   now,
		ExpiresAt:   now.Add(3 * time.Minute),
	})
}

func TestPollMarksPendingSent(t *testing.T) {
	commands := newFakeCommandRepo()
	svc := NewDefaultCommandService(commands, newFakeMessageRepo())
	seedCommand(commands, "cmd-1", "mod-1", models.CommandTypeSendMessage, "msg-1", models.CommandPending)

	cmds, err := svc.Poll(context.Background(), "mod-1", 10)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Status != models.CommandSent {
		t.Fatalf("expected one sent command, got %+v", cmds)
	}

	stored, _ := commands.GetByID("cmd-1")
	if stored.Status != models.CommandSent || stored.SentAt == nil {
		t.Fatalf("expected stored command sent, got %+v", stored)
	}
}

func TestPollOrdersByPriority(t *testing.T) {
	commands := newFakeCommandRepo()
	svc := NewDefaultCommandService(commands, newFakeMessageRepo())

	now := time.Now()
	commands.Create(&models.Command{
		ID: "cmd-low", ModeratorID: "mod-1", Type: models.CommandTypeSendMessage,
		Priority: models.DefaultCommandPriority, Status: models.CommandPending,
		CreatedAt: now, ExpiresAt: now.Add(time.Minute),
	})
	commands.Create(&models.Command{
		ID: "cmd-high", ModeratorID: "mod-1", Type: models.CommandTypeCheckNumber,
		Priority: 10, Status: models.CommandPending,
		CreatedAt: now.Add(time.Second), ExpiresAt: now.Add(time.Minute),
	})

	cmds, err := svc.Poll(context.Background(), "mod-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 2 || cmds[0].ID != "cmd-high" {
		t.Fatalf("expected the check command first, got %+v", cmds)
	}
}

func TestPollSkipsExpired(t *testing.T) {
	commands := newFakeCommandRepo()
	svc := NewDefaultCommandService(commands, newFakeMessageRepo())

	now := time.Now()
	commands.Create(&models.Command{
		ID: "cmd-dead", ModeratorID: "mod-1", Type: models.CommandTypeSendMessage,
		Priority: models.DefaultCommandPriority, Status: models.CommandPending,
		CreatedAt: now.Add(-10 * time.Minute), ExpiresAt: now.Add(-time.Minute),
	})

	cmds, err := svc.Poll(context.Background(), "mod-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 0 {
		t.Fatalf("expected no expired commands delivered, got %+v", cmds)
	}
}

func TestCompleteSuccessMarksMessageSent(t *testing.T) {
	commands := newFakeCommandRepo()
	messages := newFakeMessageRepo()
	svc := NewDefaultCommandService(commands, messages)

	messages.messages["msg-1"] = &models.Message{
		ID: "msg-1", ModeratorID: "mod-1", Status: models.MessageSending, InFlightCommandID: "cmd-1",
	}
	seedCommand(commands, "cmd-1", "mod-1", models.CommandTypeSendMessage, "msg-1", models.CommandAcked)

	cmd, err := svc.Complete(context.Background(), "mod-1", "cmd-1", CompletionInput{
		ResultStatus: models.ResultSuccess,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if cmd.Status != models.CommandCompleted {
		t.Fatalf("expected completed, got %s", cmd.Status)
	}
	msg, _ := messages.GetByID("msg-1")
	if msg.Status != models.MessageSent || msg.SentAt == nil {
		t.Fatalf("expected message marked sent, got %+v", msg)
	}
}

func TestCompleteSuccessOverridesLocalFailure(t *testing.T) {
	commands := newFakeCommandRepo()
	messages := newFakeMessageRepo()
	svc := NewDefaultCommandService(commands, messages)

	// The message was requeued locally while the extension was executing.
	// The remote delivery still wins.
	messages.messages["msg-1"] = &models.Message{
		ID: "msg-1", ModeratorID: "mod-1", Status: models.MessageQueued,
	}
	seedCommand(commands, "cmd-1", "mod-1", models.CommandTypeSendMessage, "msg-1", models.CommandAcked)

	if _, err := svc.Complete(context.Background(), "mod-1", "cmd-1", CompletionInput{
		ResultStatus: models.ResultSuccess,
	}); err != nil {
		t.Fatal(err)
	}
	msg, _ := messages.GetByID("msg-1")
	if msg.Status != models.MessageSent {
		t.Fatalf("ground truth must mark the message sent, got %s", msg.Status)
	}
}

func TestCompleteFailureMarksMessageFailed(t *testing.T) {
	commands := newFakeCommandRepo()
	messages := newFakeMessageRepo()
	svc := NewDefaultCommandService(commands, messages)

	messages.messages["msg-1"] = &models.Message{
		ID: "msg-1", ModeratorID: "mod-1", Status: models.MessageSending, InFlightCommandID: "cmd-1",
	}
	seedCommand(commands, "cmd-1", "mod-1", models.CommandTypeSendMessage, "msg-1", models.CommandAcked)

	cmd, err := svc.Complete(context.Background(), "mod-1", "cmd-1", CompletionInput{
		ResultStatus: models.ResultFailure,
		Result:       "recipient not found",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if cmd.Status != models.CommandFailed {
		t.Fatalf("expected failed command, got %s", cmd.Status)
	}
	msg, _ := messages.GetByID("msg-1")
	if msg.Status != models.MessageFailed {
		t.Fatalf("expected failed message, got %s", msg.Status)
	}
}

func TestCompleteRejectsTerminalCommand(t *testing.T) {
	commands := newFakeCommandRepo()
	svc := NewDefaultCommandService(commands, newFakeMessageRepo())
	seedCommand(commands, "cmd-1", "mod-1", models.CommandTypeSendMessage, "", models.CommandCompleted)

	_, err := svc.Complete(context.Background(), "mod-1", "cmd-1", CompletionInput{
		ResultStatus: models.ResultSuccess,
	})
	if err != ErrCommandFinished {
		t.Fatalf("expected ErrCommandFinished, got %v", err)
	}
}

func TestCommandOwnershipIsEnforced(t *testing.T) {
	commands := newFakeCommandRepo()
	svc := NewDefaultCommandService(commands, newFakeMessageRepo())
	seedCommand(commands, "cmd-1", "mod-1", models.CommandTypeSendMessage, "", models.CommandSent)

	if err := svc.Acknowledge(context.Background(), "mod-2", "cmd-1"); err != ErrCommandNotFound {
		t.Fatalf("expected ErrCommandNotFound for foreign moderator, got %v", err)
	}
}

func TestAcknowledgeTransitions(t *testing.T) {
	commands := newFakeCommandRepo()
	svc := NewDefaultCommandService(commands, newFakeMessageRepo())
	seedCommand(commands, "cmd-1", "mod-1", models.CommandTypeSendMessage, "", models.CommandSent)

	if err := svc.Acknowledge(context.Background(), "mod-1", "cmd-1"); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	stored, _ := commands.GetByID("cmd-1")
	if stored.Status != models.CommandAcked || stored.AckedAt == nil {
		t.Fatalf("expected acked command, got %+v", stored)
	}
}

// nilReadCommandRepo reads through to the fake but reports a missing command
// as a nil record with a nil error, the way a lax store implementation might.
type nilReadCommandRepo struct {
	*fakeCommandRepo
}

func (r *nilReadCommandRepo) GetByID(id string) (*models.Command, error) {
	cmd, err := r.fakeCommandRepo.GetByID(id)
	if err == commandRepo.ErrNotFound {
		return nil, nil
	}
	return cmd, err
}

func TestUnknownCommandIsNotFound(t *testing.T) {
	commands := newFakeCommandRepo()
	svc := NewDefaultCommandService(commands, newFakeMessageRepo())

	if err := svc.Acknowledge(context.Background(), "mod-1", "cmd-missing"); err != ErrCommandNotFound {
		t.Fatalf("expected ErrCommandNotFound, got %v", err)
	}

	svc = NewDefaultCommandService(&nilReadCommandRepo{commands}, newFakeMessageRepo())
	if err := svc.Acknowledge(context.Background(), "mod-1", "cmd-missing"); err != ErrCommandNotFound {
		t.Fatalf("expected ErrCommandNotFound for a nil record, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "mod-1", "cmd-missing"); err != ErrCommandNotFound {
		t.Fatalf("expected ErrCommandNotFound from Get, got %v", err)
	}
}
