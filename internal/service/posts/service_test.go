package posts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamelink/gamelink-server/internal/store/sqlite"
)

func newTestService(t *testing.T) (*Service, int64) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	author, err := st.CreateUser(context.Background(), "alice", "Alice", "hash")
	require.NoError(t, err)

	return New(st), author.ID
}

func TestCreateValidatesContent(t *testing.T) {
	svc, author := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, author, "   ", "", nil, true)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.Create(ctx, author, strings.Repeat("x", MaxContentLength+1), "", nil, true)
	assert.ErrorIs(t, err, ErrContentTooLong)

	post, err := svc.Create(ctx, author, "  gg wp  ", " chess ", nil, true)
	require.NoError(t, err)
	assert.Equal(t, "gg wp", post.Content)
	assert.Equal(t, "chess", post.Game)
	assert.NotNil(t, post.Images)
	assert.NotZero(t, post.ID)
}

func TestFeedPagination(t *testing.T) {
	svc, author := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Create(ctx, author, "post", "", nil, true)
		require.NoError(t, err)
	}

	page1, hasMore, err := svc.Feed(ctx, 10, nil)
	require.NoError(t, err)
	assert.Len(t, page1, 10)
	assert.True(t, hasMore)

	cursor := page1[len(page1)-1].ID
	page2, hasMore, err := svc.Feed(ctx, 10, &cursor)
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	assert.False(t, hasMore)

	seen := map[int64]bool{}
	for _, p := range append(page1, page2...) {
		assert.False(t, seen[p.ID], "post %d appeared twice", p.ID)
		seen[p.ID] = true
	}
}

func TestFeedClampsLimit(t *testing.T) {
	svc, author := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, author, "post", "", nil, true)
	require.NoError(t, err)

	posts, hasMore, err := svc.Feed(ctx, -5, nil)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.False(t, hasMore)
}
