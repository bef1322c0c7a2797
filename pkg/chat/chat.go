// Copyright 2024-2026 Aiku AI

// Package chat defines what the relay needs from a chat network.
//
// Rooms are identified by id.RoomID on every backend. On Mattermost the value
// is a channel ID.
package chat

import (
	"context"
	"errors"

	"maunium.net/go/mautrix/id"

	"github.com/aiku/hookrelay/pkg/msgbuilder"
)

// ErrNotJoined is returned when sending to a room the bot is not a member of.
var ErrNotJoined = errors.New("not joined to room")

// Client sends messages on behalf of the bot.
type Client interface {
	JoinRoom(ctx context.Context, roomID id.RoomID) error
	IsJoined(ctx context.Context, roomID id.RoomID) (bool, error)
	SendMessage(ctx context.Context, roomID id.RoomID, msg msgbuilder.FormattedMessage) error
}

// Inviter answers room invitations.
type Inviter interface {
	JoinRoom(ctx context.Context, roomID id.RoomID) error
	DeclineInvite(ctx context.Context, roomID id.RoomID) error
}
