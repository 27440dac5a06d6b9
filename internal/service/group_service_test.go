package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/store"
)

func newTestGroupService(t *testing.T, groups *fakeGroupStore) GroupService {
	t.Helper()
	svc, err := NewGroupService(groups, passthroughTxRunner, testLogger())
	require.NoError(t, err)
	return svc
}

func TestGetOrCreateGroup(t *testing.T) {
	ctx := context.Background()
	groups := newFakeGroupStore()
	svc := newTestGroupService(t, groups)

	created, err := svc.GetOrCreateGroup(ctx, "beta-testers", "Early access list")
	require.NoError(t, err)
	assert.Equal(t, "beta-testers", created.Name)
	assert.Equal(t, "Early access list", created.Description)

	again, err := svc.GetOrCreateGroup(ctx, "beta-testers", "ignored")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID, "the existing group is returned")
	assert.Equal(t, "Early access list", again.Description)
}

func TestGetOrCreateGroupEmptyName(t *testing.T) {
	ctx := context.Background()
	svc := newTestGroupService(t, newFakeGroupStore())

	_, err := svc.GetOrCreateGroup(ctx, "", "")
	assert.Error(t, err)
}

func TestGetOrCreateGroupConvergesOnLostRace(t *testing.T) {
	ctx := context.Background()
	groups := newFakeGroupStore()
	svc := newTestGroupService(t, groups)

	// The first lookup misses, the insert fails as if a concurrent writer
	// took the name, and the retry lookup finds the row they wrote.
	winner, err := domain.NewGroup("beta-testers", "")
	require.NoError(t, err)
	groups.byName["beta-testers"] = winner
	groups.createErr = store.ErrGroupNameExists
	groups.missFirstLookup = true

	group, err := svc.GetOrCreateGroup(ctx, "beta-testers", "")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, group.ID)
}

func TestGetGroup(t *testing.T) {
	ctx := context.Background()
	groups := newFakeGroupStore()
	svc := newTestGroupService(t, groups)

	group, err := domain.NewGroup("beta-testers", "")
	require.NoError(t, err)
	groups.add(group)

	got, err := svc.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group.ID, got.ID)

	_, err = svc.GetGroup(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestUpdateGroup(t *testing.T) {
	ctx := context.Background()
	groups := newFakeGroupStore()
	svc := newTestGroupService(t, groups)

	group, err := domain.NewGroup("beta-testers", "old")
	require.NoError(t, err)
	groups.add(group)

	name := "insiders"
	description := "new"
	updated, err := svc.UpdateGroup(ctx, group.ID, GroupUpdate{
		Name:        &name,
		Description: &description,
	})
	require.NoError(t, err)
	assert.Equal(t, "insiders", updated.Name)
	assert.Equal(t, "new", updated.Description)
}

func TestUpdateGroupRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	groups := newFakeGroupStore()
	svc := newTestGroupService(t, groups)

	group, err := domain.NewGroup("beta-testers", "")
	require.NoError(t, err)
	groups.add(group)

	empty := ""
	_, err = svc.UpdateGroup(ctx, group.ID, GroupUpdate{Name: &empty})
	assert.Error(t, err)
}

func TestUpdateGroupNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestGroupService(t, newFakeGroupStore())

	name := "anything"
	_, err := svc.UpdateGroup(ctx, uuid.New(), GroupUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestListGroups(t *testing.T) {
	ctx := context.Background()
	groups := newFakeGroupStore()
	svc := newTestGroupService(t, groups)

	for _, name := range []string{"one", "two"} {
		group, err := domain.NewGroup(name, "")
		require.NoError(t, err)
		groups.add(group)
	}

	got, err := svc.ListGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
