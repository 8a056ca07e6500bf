package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gamelink/gamelink-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUsers(t *testing.T, s *SQLiteStore, names ...string) []*store.User {
	t.Helper()

	ctx := context.Background()
	users := make([]*store.User, 0, len(names))
	for _, name := range names {
		u, err := s.CreateUser(ctx, name, name, "hash")
		if err != nil {
			t.Fatalf("failed to create user %s: %v", name, err)
		}
		users = append(users, u)
	}
	return users
}

func sendText(t *testing.T, s *SQLiteStore, from, to int64, text string) *store.Message {
	t.Helper()

	msg := &store.Message{SenderID: from, ReceiverID: to, Text: text}
	if err := s.SaveMessage(context.Background(), msg); err != nil {
		t.Fatalf("failed to save message: %v", err)
	}
	return msg
}

func TestListUsersExcept(t *testing.T) {
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob", "charlie")

	got, err := s.ListUsersExcept(context.Background(), users[0].ID)
	if err != nil {
		t.Fatalf("ListUsersExcept failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 users, got %d", len(got))
	}
	if got[0].Username != "bob" || got[1].Username != "charlie" {
		t.Errorf("unexpected users: %s, %s", got[0].Username, got[1].Username)
	}
}

func TestSaveMessageAssignsIdentity(t *testing.T) {
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")

	msg := sendText(t, s, users[0].ID, users[1].ID, "hi")
	if msg.ID == "" {
		t.Error("expected message ID to be assigned")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("expected creation timestamp to be assigned")
	}
	if msg.IsRead {
		t.Error("new message must be unread")
	}
}

func TestListConversationSymmetricAndOrdered(t *testing.T) {
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob", "charlie")
	a, b, c := users[0].ID, users[1].ID, users[2].ID
	ctx := context.Background()

	sendText(t, s, a, b, "one")
	sendText(t, s, b, a, "two")
	sendText(t, s, a, b, "three")
	// Unrelated pair must not leak into the conversation.
	sendText(t, s, a, c, "noise")

	fromA, err := s.ListConversation(ctx, a, b)
	if err != nil {
		t.Fatalf("ListConversation(a,b) failed: %v", err)
	}
	fromB, err := s.ListConversation(ctx, b, a)
	if err != nil {
		t.Fatalf("ListConversation(b,a) failed: %v", err)
	}

	if len(fromA) != 3 || len(fromB) != 3 {
		t.Fatalf("expected 3 messages each way, got %d and %d", len(fromA), len(fromB))
	}
	for i := range fromA {
		if fromA[i].ID != fromB[i].ID {
			t.Errorf("conversation not symmetric at %d: %s vs %s", i, fromA[i].ID, fromB[i].ID)
		}
	}
	for i, want := range []string{"one", "two", "three"} {
		if fromA[i].Text != want {
			t.Errorf("expected %q at %d, got %q", want, i, fromA[i].Text)
		}
		if !fromA[i].CreatedAt.Before(time.Now().Add(time.Second)) {
			t.Errorf("implausible timestamp at %d: %v", i, fromA[i].CreatedAt)
		}
	}
}

func TestListConversationMarksRead(t *testing.T) {
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")
	a, b := users[0].ID, users[1].ID
	ctx := context.Background()

	sendText(t, s, a, b, "hi")
	sendText(t, s, a, b, "there")

	count, err := s.CountUnread(ctx, b, a)
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread before fetch, got %d", count)
	}

	msgs, err := s.ListConversation(ctx, b, a)
	if err != nil {
		t.Fatalf("ListConversation failed: %v", err)
	}
	for i, m := range msgs {
		if !m.IsRead {
			t.Errorf("message %d not marked read in fetch result", i)
		}
	}

	count, err = s.CountUnread(ctx, b, a)
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 unread after fetch, got %d", count)
	}

	// The sender fetching must not flip messages addressed to the receiver.
	sendText(t, s, a, b, "again")
	if _, err := s.ListConversation(ctx, a, b); err != nil {
		t.Fatalf("ListConversation failed: %v", err)
	}
	count, err = s.CountUnread(ctx, b, a)
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if count != 1 {
		t.Errorf("sender fetch must not mark receiver's unread; got %d", count)
	}
}

func TestCountUnreadDoesNotMutate(t *testing.T) {
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")
	a, b := users[0].ID, users[1].ID
	ctx := context.Background()

	sendText(t, s, a, b, "hi")

	for i := 0; i < 3; i++ {
		count, err := s.CountUnread(ctx, b, a)
		if err != nil {
			t.Fatalf("CountUnread failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected unread count 1 on call %d, got %d", i, count)
		}
	}
}

func TestMarkConversationReadIdempotent(t *testing.T) {
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")
	a, b := users[0].ID, users[1].ID
	ctx := context.Background()

	sendText(t, s, a, b, "hi")

	if err := s.MarkConversationRead(ctx, b, a); err != nil {
		t.Fatalf("MarkConversationRead failed: %v", err)
	}
	if err := s.MarkConversationRead(ctx, b, a); err != nil {
		t.Fatalf("second MarkConversationRead failed: %v", err)
	}

	count, err := s.CountUnread(ctx, b, a)
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 unread, got %d", count)
	}

	msgs, err := s.ListConversation(ctx, b, a)
	if err != nil {
		t.Fatalf("ListConversation failed: %v", err)
	}
	if len(msgs) != 1 || !msgs[0].IsRead {
		t.Errorf("message flipped back to unread: %+v", msgs[0])
	}
}

func TestConcurrentFetchAndMarkRead(t *testing.T) {
	s := newTestStore(t)
	users := seedUsers(t, s, "alice", "bob")
	a, b := users[0].ID, users[1].ID
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		sendText(t, s, a, b, "msg")
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.ListConversation(ctx, b, a)
		}()
		go func() {
			defer wg.Done()
			_ = s.MarkConversationRead(ctx, b, a)
		}()
	}
	wg.Wait()

	count, err := s.CountUnread(ctx, b, a)
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 unread after racing fetch/markRead, got %d", count)
	}
}

func TestUpdateProfile(t *testing.T) {
	s := newTestStore(t)
	users := seedUsers(t, s, "alice")
	ctx := context.Background()

	updated, err := s.UpdateProfile(ctx, users[0].ID, "Alice A.", "https://img.example/alice.png")
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.FullName != "Alice A." || updated.ProfilePic != "https://img.example/alice.png" {
		t.Errorf("unexpected profile: %+v", updated)
	}

	if _, err := s.UpdateProfile(ctx, 9999, "nobody", ""); err == nil {
		t.Error("expected error updating missing user")
	}
}

func TestListPostsCursorPagination(t *testing.T) {
	s := newTestStore(t)
	users := seedUsers(t, s, "alice")
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		post := &store.Post{
			AuthorID:  users[0].ID,
			Content:   "post",
			IsPublic:  true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreatePost(ctx, post); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}
	// Private posts stay out of the feed.
	private := &store.Post{AuthorID: users[0].ID, Content: "secret", IsPublic: false}
	if err := s.CreatePost(ctx, private); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	page1, err := s.ListPosts(ctx, 3, nil)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(page1) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(page1))
	}
	if !page1[0].CreatedAt.After(page1[2].CreatedAt) {
		t.Error("expected newest-first ordering")
	}

	cursor := page1[len(page1)-1].ID
	page2, err := s.ListPosts(ctx, 3, &cursor)
	if err != nil {
		t.Fatalf("ListPosts with cursor failed: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("expected 2 remaining posts, got %d", len(page2))
	}
	for _, p := range page2 {
		if !p.CreatedAt.Before(page1[len(page1)-1].CreatedAt) {
			t.Errorf("cursor page returned non-older post %d", p.ID)
		}
		if p.Content == "secret" {
			t.Error("private post leaked into feed")
		}
	}
}

func TestListPostsUnknownCursorServesNewestPage(t *testing.T) {
	s := newTestStore(t)
	users := seedUsers(t, s, "alice")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		post := &store.Post{AuthorID: users[0].ID, Content: "post", IsPublic: true}
		if err := s.CreatePost(ctx, post); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}

	stale := int64(9999)
	page, err := s.ListPosts(ctx, 10, &stale)
	if err != nil {
		t.Fatalf("ListPosts with unknown cursor failed: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected full newest page for unknown cursor, got %d posts", len(page))
	}
}
