// Copyright 2024-2026 Aiku AI

package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/hookrelay/pkg/msgbuilder"
)

const botUser id.UserID = "@relay:example.org"

type hsCall struct {
	Method string
	Path   string
	Body   string
}

// fakeHomeserver simulates the few client-server endpoints the bot uses.
type fakeHomeserver struct {
	Server *httptest.Server

	mu     sync.Mutex
	calls  []hsCall
	tokens map[string]bool
	joined []id.RoomID
	logins int
}

func newFakeHomeserver(t *testing.T) *fakeHomeserver {
	f := &fakeHomeserver{tokens: map[string]bool{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeHomeserver) Calls() []hsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hsCall(nil), f.calls...)
}

func (f *fakeHomeserver) Logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeHomeserver) writeError(w http.ResponseWriter, status int, code, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"errcode": code, "error": msg})
}

func (f *fakeHomeserver) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := r.URL.Path
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hsCall{Method: r.Method, Path: path, Body: string(body)})
	w.Header().Set("Content-Type", "application/json")

	if !strings.HasSuffix(path, "/login") && !f.tokens[token] {
		f.writeError(w, http.StatusUnauthorized, "M_UNKNOWN_TOKEN", "Unknown access token")
		return
	}

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/login"):
		var req struct {
			Password string `json:"password"`
		}
		_ = json.Unmarshal(body, &req)
		if req.Password != "hunter2" {
			f.writeError(w, http.StatusForbidden, "M_FORBIDDEN", "Invalid password")
			return
		}
		f.logins++
		tok := fmt.Sprintf("token-%d", f.logins)
		f.tokens[tok] = true
		_ = json.NewEncoder(w).Encode(map[string]string{
			"user_id":      botUser.String(),
			"device_id":    "DEVICE",
			"access_token": tok,
		})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/account/whoami"):
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": botUser.String(), "device_id": "DEVICE"})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/joined_rooms"):
		_ = json.NewEncoder(w).Encode(map[string][]id.RoomID{"joined_rooms": f.joined})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/join"):
		roomID := id.RoomID(roomFromPath(path))
		f.joined = append(f.joined, roomID)
		_ = json.NewEncoder(w).Encode(map[string]id.RoomID{"room_id": roomID})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/leave"):
		_, _ = w.Write([]byte("{}"))

	case r.Method == http.MethodPut && strings.Contains(path, "/send/m.room.message/"):
		_ = json.NewEncoder(w).Encode(map[string]string{"event_id": "$sent"})

	default:
		f.writeError(w, http.StatusNotFound, "M_UNRECOGNIZED", "Unrecognized request")
	}
}

// roomFromPath extracts the room ID from /_matrix/client/v3/rooms/{roomID}/...
func roomFromPath(path string) string {
	_, rest, _ := strings.Cut(path, "/rooms/")
	roomID, _, _ := strings.Cut(rest, "/")
	return roomID
}

func newTestBot(t *testing.T, hs *fakeHomeserver, password string) *Bot {
	t.Helper()
	b, err := New(Config{
		Homeserver: hs.Server.URL,
		Username:   "relay",
		Password:   password,
		StateDir:   t.TempDir(),
		DeviceName: "hookrelay",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestLoginStoresSession(t *testing.T) {
	t.Parallel()
	hs := newFakeHomeserver(t)
	b := newTestBot(t, hs, "hunter2")

	if err := b.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if b.UserID() != botUser {
		t.Errorf("UserID: got %s, want %s", b.UserID(), botUser)
	}
	sess, err := b.store.LoadSession()
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if sess.AccessToken != "token-1" || sess.DeviceID != "DEVICE" {
		t.Errorf("stored session: %+v", sess)
	}
}

func TestLoginReusesValidSession(t *testing.T) {
	t.Parallel()
	hs := newFakeHomeserver(t)
	hs.tokens["kept"] = true
	b := newTestBot(t, hs, "wrong")
	b.store.SaveSession(Session{UserID: botUser, DeviceID: "DEVICE", AccessToken: "kept"})

	if err := b.Login(context.Background()); err != nil {
		t.Fatalf("Login with a valid stored session: %v", err)
	}
	if n := hs.Logins(); n != 0 {
		t.Errorf("password login should be skipped, got %d logins", n)
	}
}

func TestLoginReplacesRevokedSession(t *testing.T) {
	t.Parallel()
	hs := newFakeHomeserver(t)
	b := newTestBot(t, hs, "hunter2")
	b.store.SaveSession(Session{UserID: botUser, DeviceID: "OLD", AccessToken: "revoked"})

	if err := b.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	sess, _ := b.store.LoadSession()
	if sess == nil || sess.AccessToken != "token-1" {
		t.Errorf("revoked session was not replaced: %+v", sess)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()
	hs := newFakeHomeserver(t)
	b := newTestBot(t, hs, "nope")
	if err := b.Login(context.Background()); err == nil {
		t.Fatal("expected an error for a rejected password")
	}
}

func TestRoomOperations(t *testing.T) {
	t.Parallel()
	hs := newFakeHomeserver(t)
	b := newTestBot(t, hs, "hunter2")
	ctx := context.Background()
	if err := b.Login(ctx); err != nil {
		t.Fatal(err)
	}
	const room id.RoomID = "!ops:example.org"

	if joined, err := b.IsJoined(ctx, room); err != nil || joined {
		t.Fatalf("IsJoined before join: got %v %v", joined, err)
	}
	if err := b.JoinRoom(ctx, room); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if joined, err := b.IsJoined(ctx, room); err != nil || !joined {
		t.Fatalf("IsJoined after join: got %v %v", joined, err)
	}

	msg := msgbuilder.FormattedMessage{Plain: "[widgets] alice opened issue #1", HTML: "<b>[widgets]</b> alice opened issue #1"}
	if err := b.SendMessage(ctx, room, msg); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if err := b.DeclineInvite(ctx, "!evil:example.org"); err != nil {
		t.Fatalf("DeclineInvite: %v", err)
	}

	var sent, left bool
	for _, c := range hs.Calls() {
		switch {
		case strings.Contains(c.Path, "/send/m.room.message/"):
			sent = true
			var content event.MessageEventContent
			if err := json.Unmarshal([]byte(c.Body), &content); err != nil {
				t.Fatal(err)
			}
			if content.MsgType != event.MsgNotice || content.Format != event.FormatHTML {
				t.Errorf("message should be an HTML notice, got %+v", content)
			}
			if content.Body != msg.Plain || content.FormattedBody != msg.HTML {
				t.Errorf("message body mismatch: %+v", content)
			}
		case strings.HasSuffix(c.Path, "/leave"):
			left = roomFromPath(c.Path) == "!evil:example.org"
		}
	}
	if !sent {
		t.Error("no message was sent")
	}
	if !left {
		t.Error("declined room was not left")
	}
}

func TestInvitesReachCallback(t *testing.T) {
	t.Parallel()
	hs := newFakeHomeserver(t)
	b := newTestBot(t, hs, "hunter2")
	if err := b.Login(context.Background()); err != nil {
		t.Fatal(err)
	}
	var got []id.RoomID
	b.OnInvite(func(_ context.Context, roomID id.RoomID) {
		got = append(got, roomID)
	})

	member := func(room id.RoomID, target id.UserID, membership event.Membership) *event.Event {
		key := target.String()
		return &event.Event{
			Type:     event.StateMember,
			RoomID:   room,
			Sender:   "@admin:example.org",
			StateKey: &key,
			Content: event.Content{
				Parsed: &event.MemberEventContent{Membership: membership},
			},
		}
	}
	ctx := context.Background()
	b.handleMember(ctx, member("!a:example.org", botUser, event.MembershipInvite))
	b.handleMember(ctx, member("!b:example.org", "@someone:example.org", event.MembershipInvite))
	b.handleMember(ctx, member("!c:example.org", botUser, event.MembershipJoin))

	if len(got) != 1 || got[0] != "!a:example.org" {
		t.Errorf("invites delivered: %v, want only !a:example.org", got)
	}
}
