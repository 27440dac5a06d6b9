package task

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthroughTxRunner runs the body without a real transaction. The fakes
// ignore the nil *sql.Tx.
func passthroughTxRunner(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return fn(ctx, nil)
}

// fakeCampaignStore is an in-memory store.CampaignStore.
type fakeCampaignStore struct {
	mu            sync.Mutex
	campaigns     map[uuid.UUID]*domain.Campaign
	links         map[uuid.UUID]map[uuid.UUID]bool
	statusHistory []domain.CampaignStatus
	linkErr       error
}

func newFakeCampaignStore() *fakeCampaignStore {
	return &fakeCampaignStore{
		campaigns: make(map[uuid.UUID]*domain.Campaign),
		links:     make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (s *fakeCampaignStore) Create(_ context.Context, campaign *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[campaign.ID] = campaign
	return nil
}

func (s *fakeCampaignStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.campaigns[id]
	if !ok {
		return nil, store.ErrCampaignNotFound
	}
	return campaign, nil
}

func (s *fakeCampaignStore) GetWithRecipients(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	return s.GetByID(ctx, id)
}

func (s *fakeCampaignStore) List(_ context.Context) ([]*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeCampaignStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.campaigns[id]
	if !ok {
		return store.ErrCampaignNotFound
	}
	if err := campaign.UpdateStatus(status); err != nil {
		return err
	}
	s.statusHistory = append(s.statusHistory, status)
	return nil
}

func (s *fakeCampaignStore) LinkRecipient(_ context.Context, campaignID, recipientID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linkErr != nil {
		return false, s.linkErr
	}
	if s.links[campaignID] == nil {
		s.links[campaignID] = make(map[uuid.UUID]bool)
	}
	if s.links[campaignID][recipientID] {
		return false, nil
	}
	s.links[campaignID][recipientID] = true
	return true, nil
}

func (s *fakeCampaignStore) WithTx(*sql.Tx) store.CampaignStore { return s }

func (s *fakeCampaignStore) linkCount(campaignID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links[campaignID])
}

// fakeRecipientStore is an in-memory store.RecipientStore. Emails in
// failOn return the configured error from GetOrCreate.
type fakeRecipientStore struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Recipient
	failOn  map[string]error
}

func newFakeRecipientStore() *fakeRecipientStore {
	return &fakeRecipientStore{
		byEmail: make(map[string]*domain.Recipient),
		failOn:  make(map[string]error),
	}
}

func (s *fakeRecipientStore) add(recipient *domain.Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[recipient.Email] = recipient
}

func (s *fakeRecipientStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byEmail {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, store.ErrRecipientNotFound
}

func (s *fakeRecipientStore) GetByEmail(_ context.Context, email string) (*domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrRecipientNotFound
	}
	return r, nil
}

func (s *fakeRecipientStore) GetOrCreate(_ context.Context, recipient *domain.Recipient) (*domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOn[recipient.Email]; ok {
		return nil, err
	}
	if existing, ok := s.byEmail[recipient.Email]; ok {
		return existing, nil
	}
	s.byEmail[recipient.Email] = recipient
	return recipient, nil
}

func (s *fakeRecipientStore) Update(_ context.Context, recipient *domain.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[recipient.Email] = recipient
	return nil
}

func (s *fakeRecipientStore) List(_ context.Context, includeOptedOut bool) ([]*domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Recipient
	for _, r := range s.byEmail {
		if !includeOptedOut && r.OptOut {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeRecipientStore) ListByGroup(_ context.Context, groupID uuid.UUID, activeOnly bool) ([]*domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Recipient
	for _, r := range s.byEmail {
		if r.GroupID == nil || *r.GroupID != groupID {
			continue
		}
		if activeOnly && r.OptOut {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeRecipientStore) WithTx(*sql.Tx) store.RecipientStore { return s }

// fakeTaskStore is an in-memory TaskStore used by runner tests.
type fakeTaskStore struct {
	mu         sync.Mutex
	saved      []Task
	statuses   map[uuid.UUID][]TaskStatus
	results    map[uuid.UUID][]byte
	pending    []Task
	processing []Task
	saveErr    error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		statuses: make(map[uuid.UUID][]TaskStatus),
		results:  make(map[uuid.UUID][]byte),
	}
}

func (s *fakeTaskStore) SaveTask(_ context.Context, t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, t)
	return nil
}

func (s *fakeTaskStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status TaskStatus, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = append(s.statuses[id], status)
	return nil
}

func (s *fakeTaskStore) SaveTaskResult(_ context.Context, id uuid.UUID, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = result
	return nil
}

func (s *fakeTaskStore) GetPendingTasks(_ context.Context) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, nil
}

func (s *fakeTaskStore) GetProcessingTasks(_ context.Context, _ time.Duration) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing, nil
}

func (s *fakeTaskStore) WithTx(*sql.Tx) TaskStore { return s }

func (s *fakeTaskStore) statusHistory(id uuid.UUID) []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStatus, len(s.statuses[id]))
	copy(out, s.statuses[id])
	return out
}

func (s *fakeTaskStore) resultFor(id uuid.UUID) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[id]
}

// fakeNotifier records sends and can be configured to fail.
type fakeNotifier struct {
	mu     sync.Mutex
	name   string
	err    error
	sends  []string
	bodies []string
}

func (n *fakeNotifier) Name() string { return n.name }

func (n *fakeNotifier) Send(_ context.Context, to, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sends = append(n.sends, to)
	n.bodies = append(n.bodies, body)
	return nil
}

func (n *fakeNotifier) sentTo() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sends))
	copy(out, n.sends)
	return out
}

func (n *fakeNotifier) sentBodies() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.bodies))
	copy(out, n.bodies)
	return out
}

// fakeTokenIssuer signs deterministic tokens so tests can assert on the
// opt-out link appended to message bodies. Emails in failOn fail Generate.
type fakeTokenIssuer struct {
	failOn map[string]error
}

func (f *fakeTokenIssuer) Generate(_ context.Context, email string) (string, error) {
	if err, ok := f.failOn[email]; ok {
		return "", err
	}
	return "tok-" + email, nil
}

// staticTask is a minimal Task whose Execute reports to a channel.
type staticTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	result   []byte
	execErr  error
	executed chan struct{}
}

func newStaticTask(taskType string, execErr error) *staticTask {
	return &staticTask{
		id:       uuid.New(),
		taskType: taskType,
		payload:  []byte(`{}`),
		execErr:  execErr,
		executed: make(chan struct{}, 8),
	}
}

func (t *staticTask) ID() uuid.UUID      { return t.id }
func (t *staticTask) Type() string       { return t.taskType }
func (t *staticTask) Payload() []byte    { return t.payload }
func (t *staticTask) Result() []byte     { return t.result }
func (t *staticTask) Status() TaskStatus { return TaskStatusPending }
func (t *staticTask) Execute(context.Context) error {
	t.executed <- struct{}{}
	return t.execErr
}

// staticTaskFactory rebinds any payload to a fixed task.
type staticTaskFactory struct {
	taskType string
	task     Task
	err      error
}

func (f *staticTaskFactory) TaskType() string { return f.taskType }
func (f *staticTaskFactory) NewTask(uuid.UUID, []byte) (Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.task, nil
}
