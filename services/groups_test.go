package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/socialbbs/models"
)

func TestCreateGroup_EnrollsCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	group, err := f.svc.Groups.CreateGroup(ctx, alice, "  Gophers ", "all things Go")
	require.NoError(t, err)
	assert.Equal(t, "Gophers", group.Name)

	members, err := f.svc.Groups.Members(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "alice", members[0].Username)

	_, err = f.svc.Groups.CreateGroup(ctx, alice, " ", "")
	assert.ErrorIs(t, err, ErrGroupNameRequired)
}

func TestJoinAndLeaveGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	group, err := f.svc.Groups.CreateGroup(ctx, alice, "Gophers", "")
	require.NoError(t, err)

	member, err := f.svc.Groups.JoinGroup(ctx, bob, group.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.UserID, member.UserID)

	_, err = f.svc.Groups.JoinGroup(ctx, bob, group.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.Equal(t, KindConflict, KindOf(err))

	mine, err := f.svc.Groups.GroupsForUser(ctx, bob.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, group.ID, mine[0].ID)

	require.NoError(t, f.svc.Groups.LeaveGroup(ctx, bob, group.ID))
	err = f.svc.Groups.LeaveGroup(ctx, bob, group.ID)
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = f.svc.Groups.JoinGroup(ctx, bob, group.ID+1)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestJoinGroup_ConcurrentJoinsYieldOneMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	group, err := f.svc.Groups.CreateGroup(ctx, alice, "Gophers", "")
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Groups.JoinGroup(ctx, bob, group.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyMember)
	}
	assert.Equal(t, 1, succeeded)

	var count int64
	require.NoError(t, f.db.Model(&models.GroupMember{}).
		Where("user_id = ? AND group_id = ?", bob.UserID, group.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestListGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	groups, err := f.svc.Groups.ListGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = f.svc.Groups.CreateGroup(ctx, alice, "one", "")
	require.NoError(t, err)
	_, err = f.svc.Groups.CreateGroup(ctx, alice, "two", "")
	require.NoError(t, err)

	groups, err = f.svc.Groups.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "one", groups[0].Name)
	assert.Equal(t, "two", groups[1].Name)
}
