package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/events"
	"github.com/postflight/campaign-api/internal/store"
	"github.com/postflight/campaign-api/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthroughTxRunner runs the body without a real transaction.
func passthroughTxRunner(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return fn(ctx, nil)
}

// recordingEmitter captures emitted task request events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) emitted() []*events.TaskRequestEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*events.TaskRequestEvent, len(e.events))
	copy(out, e.events)
	return out
}

// fakeCampaignStore is an in-memory store.CampaignStore. It is safe for
// concurrent use so it can back task-runner workers in lifecycle tests.
// When directory is set, GetWithRecipients resolves linked recipient IDs
// through it.
type fakeCampaignStore struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*domain.Campaign
	links     map[uuid.UUID][]uuid.UUID
	directory *fakeRecipientStore
	createErr error
}

func newFakeCampaignStore() *fakeCampaignStore {
	return &fakeCampaignStore{
		campaigns: make(map[uuid.UUID]*domain.Campaign),
		links:     make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *fakeCampaignStore) Create(_ context.Context, campaign *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
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
	s.mu.Lock()
	campaign, ok := s.campaigns[id]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrCampaignNotFound
	}
	loaded := *campaign
	linked := make([]uuid.UUID, len(s.links[id]))
	copy(linked, s.links[id])
	s.mu.Unlock()

	if s.directory == nil {
		return &loaded, nil
	}

	loaded.Recipients = nil
	for _, recipientID := range linked {
		recipient, err := s.directory.GetByID(ctx, recipientID)
		if err != nil {
			return nil, err
		}
		loaded.Recipients = append(loaded.Recipients, recipient)
	}
	return &loaded, nil
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
	return campaign.UpdateStatus(status)
}

func (s *fakeCampaignStore) LinkRecipient(_ context.Context, campaignID, recipientID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, linked := range s.links[campaignID] {
		if linked == recipientID {
			return false, nil
		}
	}
	s.links[campaignID] = append(s.links[campaignID], recipientID)
	return true, nil
}

func (s *fakeCampaignStore) WithTx(*sql.Tx) store.CampaignStore { return s }

func (s *fakeCampaignStore) linkCount(campaignID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links[campaignID])
}

func (s *fakeCampaignStore) statusOf(campaignID uuid.UUID) domain.CampaignStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.campaigns[campaignID]
	if !ok {
		return ""
	}
	return campaign.Status
}

// fakeRecipientStore is an in-memory store.RecipientStore keyed by email.
// Safe for concurrent use.
type fakeRecipientStore struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Recipient
	updates int
}

func newFakeRecipientStore() *fakeRecipientStore {
	return &fakeRecipientStore{byEmail: make(map[string]*domain.Recipient)}
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
	if existing, ok := s.byEmail[recipient.Email]; ok {
		return existing, nil
	}
	s.byEmail[recipient.Email] = recipient
	return recipient, nil
}

func (s *fakeRecipientStore) Update(_ context.Context, recipient *domain.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[recipient.Email]; !ok {
		return store.ErrRecipientNotFound
	}
	s.byEmail[recipient.Email] = recipient
	s.updates++
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

// fakeTaskStore is an in-memory task.TaskStore for lifecycle tests that run
// a real task runner over the service fakes.
type fakeTaskStore struct {
	mu       sync.Mutex
	statuses map[uuid.UUID][]task.TaskStatus
	results  map[uuid.UUID][]byte
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		statuses: make(map[uuid.UUID][]task.TaskStatus),
		results:  make(map[uuid.UUID][]byte),
	}
}

func (s *fakeTaskStore) SaveTask(_ context.Context, t task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[t.ID()] = append(s.statuses[t.ID()], task.TaskStatusPending)
	return nil
}

func (s *fakeTaskStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status task.TaskStatus, _ string) error {
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

func (s *fakeTaskStore) GetPendingTasks(_ context.Context) ([]task.Task, error) {
	return nil, nil
}

func (s *fakeTaskStore) GetProcessingTasks(_ context.Context, _ time.Duration) ([]task.Task, error) {
	return nil, nil
}

func (s *fakeTaskStore) WithTx(*sql.Tx) task.TaskStore { return s }

// fakeGroupStore is an in-memory store.GroupStore. Setting createErr to
// store.ErrGroupNameExists together with missFirstLookup simulates losing
// a creation race: the first lookup misses, the insert collides, and the
// retry lookup finds the concurrent writer's row.
type fakeGroupStore struct {
	byID            map[uuid.UUID]*domain.Group
	byName          map[string]*domain.Group
	createErr       error
	missFirstLookup bool
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{
		byID:   make(map[uuid.UUID]*domain.Group),
		byName: make(map[string]*domain.Group),
	}
}

func (s *fakeGroupStore) add(group *domain.Group) {
	s.byID[group.ID] = group
	s.byName[group.Name] = group
}

func (s *fakeGroupStore) Create(_ context.Context, group *domain.Group) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.byName[group.Name]; ok {
		return store.ErrGroupNameExists
	}
	s.add(group)
	return nil
}

func (s *fakeGroupStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Group, error) {
	group, ok := s.byID[id]
	if !ok {
		return nil, store.ErrGroupNotFound
	}
	return group, nil
}

func (s *fakeGroupStore) GetByName(_ context.Context, name string) (*domain.Group, error) {
	if s.missFirstLookup {
		s.missFirstLookup = false
		return nil, store.ErrGroupNotFound
	}
	group, ok := s.byName[name]
	if !ok {
		return nil, store.ErrGroupNotFound
	}
	return group, nil
}

func (s *fakeGroupStore) Update(_ context.Context, group *domain.Group) error {
	if _, ok := s.byID[group.ID]; !ok {
		return store.ErrGroupNotFound
	}
	s.add(group)
	return nil
}

func (s *fakeGroupStore) List(_ context.Context) ([]*domain.Group, error) {
	out := make([]*domain.Group, 0, len(s.byID))
	for _, g := range s.byID {
		out = append(out, g)
	}
	return out, nil
}

func (s *fakeGroupStore) WithTx(*sql.Tx) store.GroupStore { return s }
