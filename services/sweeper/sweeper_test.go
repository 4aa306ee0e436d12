package sweeper

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"medichat/config"
	commandRepo "medichat/database/repository/command"
	messageRepo "medichat/database/repository/message"
	"medichat/models"
	"medichat/services/lease"
)

func init() {
	config.AppConfig.CommandAckTimeout = 45 * time.Second
	config.AppConfig.MessageMaxAttempts = 3
}

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

func (r *fakeCommandRepo) ListPending(string, int64, time.Time) ([]models.Command, error) {
	return nil, nil
}
func (r *fakeCommandRepo) MarkSent(string, time.Time) error    { return nil }
func (r *fakeCommandRepo) Acknowledge(string, time.Time) error { return nil }
func (r *fakeCommandRepo) Complete(string, string, string, time.Time) error {
	return nil
}
func (r *fakeCommandRepo) Fail(string, string, time.Time) error { return nil }

func (r *fakeCommandRepo) Expire(id, result string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.commands[id]
	if !ok {
		return commandRepo.ErrNotFound
	}
	if cmd.Terminal() {
		return commandRepo.ErrInvalidTransition
	}
	cmd.Status = models.CommandExpired
	cmd.ResultStatus = models.ResultTimeout
	cmd.Result = result
	cmd.CompletedAt = &at
	return nil
}

func (r *fakeCommandRepo) GetActiveByMessage(string) (*models.Command, error) {
	return nil, nil
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

func (r *fakeCommandRepo) GetRecentSuccessByMessage(string, time.Time) (*models.Command, error) {
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

func (r *fakeMessageRepo) MarkSending(string, string, time.Time) error { return nil }

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
	return nil
}

func (r *fakeMessageRepo) MarkFailed(id, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok || msg.Status != models.MessageSending {
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

func (r *fakeMessageRepo) PauseByReason(string, string, time.Time) (int64, error) {
	return 0, nil
}
func (r *fakeMessageRepo) UnpauseByReason(string, []string, time.Time) (int64, error) {
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

func (r *fakeMessageRepo) FanOutHasAccount(string, bool, time.Time) (int64, error) {
	return 0, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.ModeratorSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.ModeratorSession)}
}

func (r *fakeSessionRepo) Get(moderatorID string) (*models.ModeratorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[moderatorID]; ok {
		cp := *s
		return &cp, nil
	}
	return &models.ModeratorSession{ModeratorID: moderatorID}, nil
}

func (r *fakeSessionRepo) SetPause(moderatorID, reason, pausedBy string, resumable bool, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[moderatorID] = &models.ModeratorSession{
		ModeratorID: moderatorID, Paused: true, PauseReason: reason, PausedBy: pausedBy, Resumable: resumable,
	}
	return true, nil
}

func (r *fakeSessionRepo) ClearPause(moderatorID string, reasons []string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[moderatorID]
	if !ok || !s.Paused {
		return false, nil
	}
	for _, reason := range reasons {
		if s.PauseReason == reason {
			s.Paused = false
			s.PauseReason = ""
			return true, nil
		}
	}
	return len(reasons) == 0, nil
}

func (r *fakeSessionRepo) ListPausedByReason(reason string) ([]models.ModeratorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ModeratorSession
	for _, s := range r.sessions {
		if s.Paused && s.PauseReason == reason {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) MirrorStatus(string, string, time.Time) error { return nil }

type fakeLeaseService struct {
	staleRevoked int
}

func (s *fakeLeaseService) Acquire(context.Context, string, string, bool) (*lease.LeaseGrant, error) {
	return nil, nil
}
func (s *fakeLeaseService) Heartbeat(context.Context, string, string, lease.HeartbeatInput) (*models.SessionLease, error) {
	return nil, nil
}
func (s *fakeLeaseService) Release(context.Context, string, string) error { return nil }
func (s *fakeLeaseService) ForceRelease(context.Context, string) error    { return nil }
func (s *fakeLeaseService) ExpireStale(context.Context) (int, error) {
	n := s.staleRevoked
	s.staleRevoked = 0
	return n, nil
}
func (s *fakeLeaseService) ActiveLease(context.Context, string) (*models.SessionLease, error) {
	return nil, nil
}
func (s *fakeLeaseService) Session(context.Context, string) (*models.ModeratorSession, error) {
	return nil, nil
}
func (s *fakeLeaseService) PauseSending(context.Context, string, string) error { return nil }
func (s *fakeLeaseService) ResumeSending(context.Context, string) error        { return nil }

type sweepFixture struct {
	svc      *DefaultSweeperService
	commands *fakeCommandRepo
	messages *fakeMessageRepo
	sessions *fakeSessionRepo
	leaseSvc *fakeLeaseService
}

func newSweepFixture() *sweepFixture {
	f := &sweepFixture{
		commands: newFakeCommandRepo(),
		messages: newFakeMessageRepo(),
		sessions: newFakeSessionRepo(),
		leaseSvc: &fakeLeaseService{},
	}
	f.svc = NewDefaultSweeperService(f.commands, f.messages, f.sessions, f.leaseSvc)
	return f
}

func TestSweepExpiresAckTimedOut(t *testing.T) {
	f := newSweepFixture()
	ackedAt := time.Now().Add(-2 * config.AppConfig.CommandAckTimeout)
	f.commands.Create(&models.Command{
		ID: "cmd-1", ModeratorID: "mod-1", Type: models.CommandTypeSendMessage,
		Status: models.CommandAcked, AckedAt: &ackedAt,
		CreatedAt: ackedAt, ExpiresAt: time.Now().Add(time.Minute),
	})

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.AckTimedOut != 1 {
		t.Fatalf("expected 1 ack-timed-out command, got %+v", report)
	}
	cmd, _ := f.commands.GetByID("cmd-1")
	if cmd.Status != models.CommandExpired || cmd.ResultStatus != models.ResultTimeout {
		t.Fatalf("expected expired with timeout, got %+v", cmd)
	}
}

func TestSweepExpiresOverdueCommands(t *testing.T) {
	f := newSweepFixture()
	f.commands.Create(&models.Command{
		ID: "cmd-1", ModeratorID: "mod-1", Type: models.CommandTypeSendMessage,
		Status:    models.CommandPending,
		CreatedAt: time.Now().Add(-time.Hour), ExpiresAt: time.Now().Add(-time.Minute),
	})

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Expired != 1 {
		t.Fatalf("expected 1 expired command, got %+v", report)
	}
}

func TestSweepRequeuesStuckSending(t *testing.T) {
	f := newSweepFixture()
	f.messages.messages["msg-1"] = &models.Message{
		ID: "msg-1", ModeratorID: "mod-1", Status: models.MessageSending,
		InFlightCommandID: "cmd-gone", Attempts: 1,
	}

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Requeued != 1 {
		t.Fatalf("expected 1 requeued message, got %+v", report)
	}
	msg, _ := f.messages.GetByID("msg-1")
	if msg.Status != models.MessageQueued || msg.InFlightCommandID != "" {
		t.Fatalf("expected requeued message, got %+v", msg)
	}
}

func TestSweepFailsMessageAfterAttemptBudget(t *testing.T) {
	f := newSweepFixture()
	f.messages.messages["msg-1"] = &models.Message{
		ID: "msg-1", ModeratorID: "mod-1", Status: models.MessageSending,
		InFlightCommandID: "cmd-gone", Attempts: config.AppConfig.MessageMaxAttempts,
	}

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.FailedMessages != 1 {
		t.Fatalf("expected 1 failed message, got %+v", report)
	}
	msg, _ := f.messages.GetByID("msg-1")
	if msg.Status != models.MessageFailed {
		t.Fatalf("expected failed message, got %+v", msg)
	}
}

func TestSweepHealsSendingWithCompletedCommand(t *testing.T) {
	f := newSweepFixture()
	now := time.Now()
	f.commands.Create(&models.Command{
		ID: "cmd-1", ModeratorID: "mod-1", Type: models.CommandTypeSendMessage,
		MessageID: "msg-1", Status: models.CommandCompleted,
		ResultStatus: models.ResultSuccess, CompletedAt: &now,
		CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Minute),
	})
	f.messages.messages["msg-1"] = &models.Message{
		ID: "msg-1", ModeratorID: "mod-1", Status: models.MessageSending,
		InFlightCommandID: "cmd-1", Attempts: 1,
	}

	if _, err := f.svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	msg, _ := f.messages.GetByID("msg-1")
	if msg.Status != models.MessageSent {
		t.Fatalf("a completed command must heal the message to sent, got %+v", msg)
	}
}

func TestSweepLeavesLiveCommandsAlone(t *testing.T) {
	f := newSweepFixture()
	now := time.Now()
	f.commands.Create(&models.Command{
		ID: "cmd-1", ModeratorID: "mod-1", Type: models.CommandTypeSendMessage,
		MessageID: "msg-1", Status: models.CommandSent,
		CreatedAt: now, ExpiresAt: now.Add(time.Minute),
	})
	f.messages.messages["msg-1"] = &models.Message{
		ID: "msg-1", ModeratorID: "mod-1", Status: models.MessageSending,
		InFlightCommandID: "cmd-1", Attempts: 1,
	}

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Requeued != 0 || report.FailedMessages != 0 {
		t.Fatalf("live in-flight work must be left alone, got %+v", report)
	}
	msg, _ := f.messages.GetByID("msg-1")
	if msg.Status != models.MessageSending {
		t.Fatalf("expected message untouched, got %+v", msg)
	}
}

func TestSweepCollapsesDuplicateCommands(t *testing.T) {
	f := newSweepFixture()
	now := time.Now()
	f.commands.Create(&models.Command{
		ID: "cmd-old", ModeratorID: "mod-1", Type: models.CommandTypeSendMessage,
		MessageID: "msg-1", Status: models.CommandSent,
		CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Hour),
	})
	f.commands.Create(&models.Command{
		ID: "cmd-new", ModeratorID: "mod-1", Type: models.CommandTypeSendMessage,
		MessageID: "msg-1", Status: models.CommandPending,
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	})

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Duplicates != 1 {
		t.Fatalf("expected 1 duplicate collapsed, got %+v", report)
	}
	oldCmd, _ := f.commands.GetByID("cmd-old")
	newCmd, _ := f.commands.GetByID("cmd-new")
	if oldCmd.Status != models.CommandExpired {
		t.Fatalf("expected the older command expired, got %+v", oldCmd)
	}
	if newCmd.Status != models.CommandPending {
		t.Fatalf("expected the newest command kept, got %+v", newCmd)
	}
}

func TestSweepClearsOrphanedCheckPause(t *testing.T) {
	f := newSweepFixture()
	f.sessions.SetPause("mod-1", models.PauseReasonNumberCheck, "staff-1", true, time.Now())

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.ClearedPauses != 1 {
		t.Fatalf("expected 1 cleared pause, got %+v", report)
	}
	session, _ := f.sessions.Get("mod-1")
	if session.Paused {
		t.Fatalf("expected pause cleared, got %+v", session)
	}
}

func TestSweepKeepsCheckPauseWhileCommandActive(t *testing.T) {
	f := newSweepFixture()
	f.sessions.SetPause("mod-1", models.PauseReasonNumberCheck, "staff-1", true, time.Now())
	now := time.Now()
	f.commands.Create(&models.Command{
		ID: "cmd-check", ModeratorID: "mod-1", Type: models.CommandTypeCheckNumber,
		Status: models.CommandSent, CreatedAt: now, ExpiresAt: now.Add(time.Minute),
	})

	report, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.ClearedPauses != 0 {
		t.Fatalf("pause must stay while a check is active, got %+v", report)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newSweepFixture()
	ackedAt := time.Now().Add(-time.Hour)
	f.commands.Create(&models.Command{
		ID: "cmd-1", ModeratorID: "mod-1", Type: models.CommandTypeSendMessage,
		Status: models.CommandAcked, AckedAt: &ackedAt,
		CreatedAt: ackedAt, ExpiresAt: time.Now().Add(-time.Minute),
	})
	f.messages.messages["msg-1"] = &models.Message{
		ID: "msg-1", ModeratorID: "mod-1", Status: models.MessageSending,
		InFlightCommandID: "cmd-gone", Attempts: 1,
	}
	f.leaseSvc.staleRevoked = 2

	first, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.AckTimedOut == 0 || first.Requeued == 0 || first.StaleLeases != 2 {
		t.Fatalf("first sweep must repair everything, got %+v", first)
	}

	second, err := f.svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.AckTimedOut != 0 || second.Expired != 0 || second.Requeued != 0 ||
		second.FailedMessages != 0 || second.Duplicates != 0 || second.StaleLeases != 0 ||
		second.ClearedPauses != 0 {
		t.Fatalf("second sweep must be a no-op, got %+v", second)
	}
}
