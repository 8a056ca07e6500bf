package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func TestCreateAndListPosts(t *testing.T) {
	env := newTestEnv(t)

	token := env.registerUser(t, "alice")

	for i := 1; i <= 12; i++ {
		body := fmt.Sprintf(`{"content":"post %d","game":"chess"}`, i)
		resp := doJSON(t, env, http.MethodPost, "/api/posts", token, body)
		if resp.Code != http.StatusCreated {
			t.Fatalf("create post %d failed: %d: %s", i, resp.Code, resp.Body.String())
		}
	}

	// First page: newest first, default page size 10.
	resp := doJSON(t, env, http.MethodGet, "/api/posts", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("feed failed: %d: %s", resp.Code, resp.Body.String())
	}

	var page FeedResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to unmarshal feed: %v", err)
	}
	if len(page.Posts) != 10 {
		t.Fatalf("expected 10 posts, got %d", len(page.Posts))
	}
	if !page.HasMore {
		t.Error("expected hasMore on first page")
	}
	if page.Posts[0].Content != "post 12" {
		t.Errorf("expected newest post first, got %q", page.Posts[0].Content)
	}
	if page.LastPostID == nil {
		t.Fatal("expected lastPostId cursor")
	}

	// Second page via cursor.
	resp = doJSON(t, env, http.MethodGet, fmt.Sprintf("/api/posts?lastPostId=%d", *page.LastPostID), "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("feed page 2 failed: %d: %s", resp.Code, resp.Body.String())
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to unmarshal feed: %v", err)
	}
	if len(page.Posts) != 2 {
		t.Fatalf("expected 2 posts on second page, got %d", len(page.Posts))
	}
	if page.HasMore {
		t.Error("expected no more pages")
	}
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)

	token := env.registerUser(t, "alice")

	resp := doJSON(t, env, http.MethodPost, "/api/posts", token, `{"content":"   "}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank content, got %d", resp.Code)
	}

	resp = doJSON(t, env, http.MethodPost, "/api/posts", "", `{"content":"hello"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.Code)
	}
}

func TestPrivatePostsHiddenFromFeed(t *testing.T) {
	env := newTestEnv(t)

	token := env.registerUser(t, "alice")

	doJSON(t, env, http.MethodPost, "/api/posts", token, `{"content":"public one"}`)
	doJSON(t, env, http.MethodPost, "/api/posts", token, `{"content":"secret","isPublic":false}`)

	resp := doJSON(t, env, http.MethodGet, "/api/posts", "", "")
	var page FeedResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to unmarshal feed: %v", err)
	}
	if len(page.Posts) != 1 {
		t.Fatalf("expected 1 public post, got %d", len(page.Posts))
	}
	if page.Posts[0].Content != "public one" {
		t.Errorf("unexpected post in feed: %q", page.Posts[0].Content)
	}
}
