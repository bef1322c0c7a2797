// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package mattermost

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
)

const (
	testToken  = "test-token"
	testUserID = "bot-user-id"
)

// endpointCall records which API endpoints were hit during a test.
type endpointCall struct {
	Method string
	Path   string
	Body   string
}

// fakeMM wraps an httptest.Server simulating the parts of the Mattermost
// API the client uses. It records calls and keeps channel memberships.
type fakeMM struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls []endpointCall

	// Members maps channel ID to the user IDs in it.
	Members map[string]map[string]bool
	// Posts collects created posts in order.
	Posts []model.Post
	// FailEndpoints causes paths containing the key to return 500.
	FailEndpoints map[string]bool
}

func newFakeMM(t *testing.T) *fakeMM {
	f := &fakeMM{
		Members:       make(map[string]map[string]bool),
		FailEndpoints: make(map[string]bool),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeMM) Calls() []endpointCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]endpointCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

func (f *fakeMM) PostedMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Posts))
	for i, p := range f.Posts {
		out[i] = p.Message
	}
	return out
}

func (f *fakeMM) isMember(channelID, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Members[channelID][userID]
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": "api.fake.error", "message": msg, "status_code": status})
}

func (f *fakeMM) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := r.URL.Path

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpointCall{Method: r.Method, Path: path, Body: string(body)})

	for prefix := range f.FailEndpoints {
		if strings.Contains(path, prefix) {
			writeError(w, http.StatusInternalServerError, "fake error")
			return
		}
	}
	auth := r.Header.Get("Authorization")
	if auth != "BEARER "+testToken && auth != "Bearer "+testToken {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// /api/v4/channels/{channel_id}/members[/{user_id}]
	parts := strings.Split(strings.TrimPrefix(path, "/api/v4/"), "/")

	switch {
	case r.Method == http.MethodGet && path == "/api/v4/users/me":
		_ = json.NewEncoder(w).Encode(&model.User{Id: testUserID, Username: "hookrelay"})

	case r.Method == http.MethodGet && len(parts) == 4 && parts[0] == "channels" && parts[2] == "members":
		if !f.Members[parts[1]][parts[3]] {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		_ = json.NewEncoder(w).Encode(&model.ChannelMember{ChannelId: parts[1], UserId: parts[3]})

	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "channels" && parts[2] == "members":
		var req struct {
			UserID string `json:"user_id"`
		}
		_ = json.Unmarshal(body, &req)
		if f.Members[parts[1]] == nil {
			f.Members[parts[1]] = make(map[string]bool)
		}
		f.Members[parts[1]][req.UserID] = true
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(&model.ChannelMember{ChannelId: parts[1], UserId: req.UserID})

	case r.Method == http.MethodDelete && len(parts) == 4 && parts[0] == "channels" && parts[2] == "members":
		delete(f.Members[parts[1]], parts[3])
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})

	case r.Method == http.MethodPost && path == "/api/v4/posts":
		var post model.Post
		_ = json.Unmarshal(body, &post)
		post.Id = "created-post-id"
		f.Posts = append(f.Posts, post)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(&post)

	default:
		writeError(w, http.StatusNotFound, "not found: "+path)
	}
}

// newConnectedClient returns a Client that already verified its token
// against f.
func newConnectedClient(t *testing.T, f *fakeMM) *Client {
	t.Helper()
	c := New(Config{ServerURL: f.Server.URL, Token: testToken}, zerolog.Nop())
	if err := c.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c
}
