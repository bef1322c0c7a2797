// Copyright 2024-2026 Aiku AI

// Package routing picks the chat room a message is delivered to.
package routing

import (
	"errors"
	"fmt"
	"regexp"

	"maunium.net/go/mautrix/id"
)

var (
	ErrUnknownDestination = errors.New("unknown destination")
	ErrNoDefault          = errors.New("no default destination")
	ErrMultipleDefaults   = errors.New("more than one default destination")
	ErrDuplicateName      = errors.New("duplicate destination name")
)

// Hint is the natural key of an event's origin, such as a repository full
// name. A nil *Hint selects the default destination.
type Hint struct {
	Key string
}

// NewHint returns a hint for key.
func NewHint(key string) *Hint {
	return &Hint{Key: key}
}

// Destination binds a symbolic name to a room.
type Destination struct {
	Name    string
	RoomID  id.RoomID
	Default bool
}

// Rule sends hints whose key matches Pattern to the named destination.
type Rule struct {
	Pattern     *regexp.Regexp
	Destination string
}

// CompilePattern compiles a rule pattern. Patterns must match the whole key,
// so "acme/.*" matches "acme/widgets" but not "notacme/widgets".
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile routing pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Router resolves hints to rooms. It is immutable and safe for concurrent use.
type Router struct {
	rules       []Rule
	rooms       map[string]id.RoomID
	defaultRoom id.RoomID
	hasDefault  bool
}

// NewRouter checks that exactly one destination is the default and that
// names are unique. Rules are evaluated in the given order.
func NewRouter(destinations []Destination, rules []Rule) (*Router, error) {
	r := &Router{
		rules: append([]Rule(nil), rules...),
		rooms: make(map[string]id.RoomID, len(destinations)),
	}
	for _, dest := range destinations {
		if _, ok := r.rooms[dest.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, dest.Name)
		}
		r.rooms[dest.Name] = dest.RoomID
		if dest.Default {
			if r.hasDefault {
				return nil, fmt.Errorf("%w: %q", ErrMultipleDefaults, dest.Name)
			}
			r.defaultRoom = dest.RoomID
			r.hasDefault = true
		}
	}
	if !r.hasDefault {
		return nil, ErrNoDefault
	}
	return r, nil
}

// Resolve returns the room for hint: the destination of the first rule
// matching the hint key, or the default destination.
func (r *Router) Resolve(hint *Hint) (id.RoomID, error) {
	if hint != nil {
		for _, rule := range r.rules {
			if !rule.Pattern.MatchString(hint.Key) {
				continue
			}
			room, ok := r.rooms[rule.Destination]
			if !ok {
				return "", fmt.Errorf("%w: rule %q names %q", ErrUnknownDestination, rule.Pattern, rule.Destination)
			}
			return room, nil
		}
	}
	if !r.hasDefault {
		return "", ErrNoDefault
	}
	return r.defaultRoom, nil
}

// AuthorizedRooms returns every destination room. The bot only accepts
// invitations to these.
func (r *Router) AuthorizedRooms() map[id.RoomID]struct{} {
	out := make(map[id.RoomID]struct{}, len(r.rooms))
	for _, room := range r.rooms {
		out[room] = struct{}{}
	}
	return out
}

// IsAuthorized reports whether room is one of the destination rooms.
func (r *Router) IsAuthorized(room id.RoomID) bool {
	for _, known := range r.rooms {
		if known == room {
			return true
		}
	}
	return false
}
