// Copyright 2024-2026 Aiku AI

package routing

import (
	"errors"
	"regexp"
	"testing"

	"maunium.net/go/mautrix/id"
)

func mustRule(t *testing.T, pattern, dest string) Rule {
	t.Helper()
	re, err := CompilePattern(pattern)
	if err != nil {
		t.Fatalf("CompilePattern(%q): %v", pattern, err)
	}
	return Rule{Pattern: re, Destination: dest}
}

func testRouter(t *testing.T) *Router {
	t.Helper()
	r, err := NewRouter(
		[]Destination{
			{Name: "main", RoomID: "!main:example.org", Default: true},
			{Name: "widgets", RoomID: "!widgets:example.org"},
			{Name: "acme", RoomID: "!acme:example.org"},
		},
		[]Rule{
			mustRule(t, "acme/widgets", "widgets"),
			mustRule(t, "acme/.*", "acme"),
		},
	)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

func TestResolve(t *testing.T) {
	t.Parallel()
	r := testRouter(t)
	tests := []struct {
		name string
		hint *Hint
		want id.RoomID
	}{
		{"no hint", nil, "!main:example.org"},
		{"first rule wins over second", NewHint("acme/widgets"), "!widgets:example.org"},
		{"second rule", NewHint("acme/gadgets"), "!acme:example.org"},
		{"no match", NewHint("other/repo"), "!main:example.org"},
		{"anchored start", NewHint("notacme/gadgets"), "!main:example.org"},
		{"anchored end", NewHint("acme/widgets-fork"), "!acme:example.org"},
		{"empty key", NewHint(""), "!main:example.org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.Resolve(tt.hint)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%v) = %s, want %s", tt.hint, got, tt.want)
			}
		})
	}
}

func TestResolveUnknownDestination(t *testing.T) {
	t.Parallel()
	r, err := NewRouter(
		[]Destination{{Name: "main", RoomID: "!main:example.org", Default: true}},
		[]Rule{{Pattern: regexp.MustCompile(`^acme/.*$`), Destination: "gone"}},
	)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	if _, err := r.Resolve(NewHint("acme/widgets")); !errors.Is(err, ErrUnknownDestination) {
		t.Errorf("got %v, want ErrUnknownDestination", err)
	}
	// Keys not matching the broken rule still resolve.
	if got, err := r.Resolve(NewHint("other/repo")); err != nil || got != "!main:example.org" {
		t.Errorf("Resolve(other/repo) = %s, %v", got, err)
	}
}

func TestResolveZeroRouter(t *testing.T) {
	t.Parallel()
	var r Router
	if _, err := r.Resolve(nil); !errors.Is(err, ErrNoDefault) {
		t.Errorf("got %v, want ErrNoDefault", err)
	}
}

func TestNewRouterValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		dests []Destination
		want  error
	}{
		{"no destinations", nil, ErrNoDefault},
		{"no default", []Destination{{Name: "a", RoomID: "!a:x"}}, ErrNoDefault},
		{"two defaults", []Destination{{Name: "a", RoomID: "!a:x", Default: true}, {Name: "b", RoomID: "!b:x", Default: true}}, ErrMultipleDefaults},
		{"duplicate name", []Destination{{Name: "a", RoomID: "!a:x", Default: true}, {Name: "a", RoomID: "!b:x"}}, ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewRouter(tt.dests, nil); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompilePatternInvalid(t *testing.T) {
	t.Parallel()
	if _, err := CompilePattern("acme/(unclosed"); err == nil {
		t.Error("expected an error for an invalid pattern")
	}
}

func TestAuthorizedRooms(t *testing.T) {
	t.Parallel()
	r := testRouter(t)
	rooms := r.AuthorizedRooms()
	if len(rooms) != 3 {
		t.Fatalf("got %d rooms, want 3", len(rooms))
	}
	for _, room := range []id.RoomID{"!main:example.org", "!widgets:example.org", "!acme:example.org"} {
		if _, ok := rooms[room]; !ok {
			t.Errorf("room %s missing from authorized set", room)
		}
		if !r.IsAuthorized(room) {
			t.Errorf("IsAuthorized(%s) = false", room)
		}
	}
	if r.IsAuthorized("!evil:example.org") {
		t.Error("IsAuthorized should reject rooms that are not destinations")
	}
}
