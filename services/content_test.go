package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/socialbbs/models"
)

func TestCreatePost_FiltersAndValidates(t *testing.T) {
	f := newFixture(t, "viagra")
	ctx := context.Background()
	alice := f.register(t, "alice")

	post, err := f.svc.Content.CreatePost(ctx, alice, "  buy viagra now  ")
	require.NoError(t, err)
	assert.Equal(t, "buy *** now", post.Content)
	assert.Equal(t, alice.UserID, post.UserID)

	_, err = f.svc.Content.CreatePost(ctx, alice, "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)

	// markup is stripped before the emptiness check
	_, err = f.svc.Content.CreatePost(ctx, alice, "<script>alert(1)</script>")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestCreatePost_FilterSurvivesSanitizing(t *testing.T) {
	f := newFixture(t, "viagra", "f'ck")
	ctx := context.Background()
	alice := f.register(t, "alice")

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"apostrophe entry", "what the f'ck", "what the ***"},
		{"word split by a stripped tag", "buy via<x>gra", "buy ***"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			post, err := f.svc.Content.CreatePost(ctx, alice, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, post.Content)
		})
	}

	comment, err := f.svc.Content.CreateComment(ctx, alice, 1, "f'ck that")
	require.NoError(t, err)
	assert.Equal(t, "*** that", comment.Content)
}

func TestListPosts_NewestFirstWithComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	first, err := f.svc.Content.CreatePost(ctx, alice, "first post")
	require.NoError(t, err)
	second, err := f.svc.Content.CreatePost(ctx, bob, "second post")
	require.NoError(t, err)

	_, err = f.svc.Content.CreateComment(ctx, bob, first.ID, "nice one")
	require.NoError(t, err)
	_, err = f.svc.Content.CreateComment(ctx, alice, first.ID, "thanks")
	require.NoError(t, err)

	posts, err := f.svc.Content.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, "bob", posts[0].Author)
	assert.Empty(t, posts[0].Comments)

	assert.Equal(t, first.ID, posts[1].ID)
	require.Len(t, posts[1].Comments, 2)
	assert.Equal(t, "nice one", posts[1].Comments[0].Content)
	assert.Equal(t, "bob", posts[1].Comments[0].Author)
	assert.Equal(t, "thanks", posts[1].Comments[1].Content)

	mine, err := f.svc.Content.PostsByUser(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)
}

func TestCreateComment_NotifiesPostAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	post, err := f.svc.Content.CreatePost(ctx, alice, "hello")
	require.NoError(t, err)

	_, err = f.svc.Content.CreateComment(ctx, bob, post.ID, "hi alice")
	require.NoError(t, err)
	// commenting on your own post is silent
	_, err = f.svc.Content.CreateComment(ctx, alice, post.ID, "hi bob")
	require.NoError(t, err)

	notes, err := f.svc.Messaging.ListNotifications(ctx, alice)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "bob commented on your post", notes[0].Content)

	_, err = f.svc.Content.CreateComment(ctx, bob, 999, "lost")
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDeleteComment_AuthorOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	root := f.register(t, "root")

	post, err := f.svc.Content.CreatePost(ctx, alice, "hello")
	require.NoError(t, err)
	c1, err := f.svc.Content.CreateComment(ctx, bob, post.ID, "one")
	require.NoError(t, err)
	c2, err := f.svc.Content.CreateComment(ctx, bob, post.ID, "two")
	require.NoError(t, err)

	// the post author is not the comment author
	_, err = f.svc.Content.DeleteComment(ctx, alice, c1.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, KindPermission, KindOf(err))

	deleted, err := f.svc.Content.DeleteComment(ctx, bob, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, deleted.PostID)

	posts, err := f.svc.Content.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Len(t, posts[0].Comments, 1)
	assert.Equal(t, c2.ID, posts[0].Comments[0].ID)

	_, err = f.svc.Content.DeleteComment(ctx, root, c2.ID)
	require.NoError(t, err)

	_, err = f.svc.Content.DeleteComment(ctx, bob, c1.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)

	var remaining int64
	require.NoError(t, f.db.Model(&models.Comment{}).Count(&remaining).Error)
	assert.Zero(t, remaining)

	posts, err = f.svc.Content.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Empty(t, posts[0].Comments)
}

func TestGetPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	post, err := f.svc.Content.CreatePost(ctx, alice, "hello")
	require.NoError(t, err)

	view, err := f.svc.Content.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Author)
	assert.NotNil(t, view.Comments)

	_, err = f.svc.Content.GetPost(ctx, post.ID+1)
	assert.ErrorIs(t, err, ErrPostNotFound)
}
