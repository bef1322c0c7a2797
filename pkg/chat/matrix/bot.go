// Copyright 2024-2026 Aiku AI

// Package matrix is the Matrix chat backend. It logs in as a regular user,
// keeps its session and sync token in a bolt file and reports room
// invitations to a callback.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/hookrelay/pkg/chat"
	"github.com/aiku/hookrelay/pkg/msgbuilder"
)

const stateFile = "hookrelay.db"

// Config is the Matrix account the bot runs as.
type Config struct {
	Homeserver string
	Username   string
	Password   string
	StateDir   string
	DeviceName string
}

// InviteFunc is called for every invitation of the bot to a room.
type InviteFunc func(ctx context.Context, roomID id.RoomID)

// Bot is a logged-in Matrix client.
type Bot struct {
	cfg      Config
	client   *mautrix.Client
	store    *Store
	log      zerolog.Logger
	onInvite InviteFunc
}

var (
	_ chat.Client  = (*Bot)(nil)
	_ chat.Inviter = (*Bot)(nil)
)

// New opens the state database and prepares a client. Call Login before
// anything else.
func New(cfg Config, log zerolog.Logger) (*Bot, error) {
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	store, err := OpenStore(filepath.Join(cfg.StateDir, stateFile))
	if err != nil {
		return nil, err
	}
	client, err := mautrix.NewClient(cfg.Homeserver, "", "")
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}
	client.Store = store

	b := &Bot{
		cfg:    cfg,
		client: client,
		store:  store,
		log:    log.With().Str("component", "matrix").Logger(),
	}
	client.Log = b.log

	syncer := client.Syncer.(*mautrix.DefaultSyncer)
	syncer.FilterJSON = &mautrix.Filter{
		Room: &mautrix.RoomFilter{
			Timeline: &mautrix.FilterPart{Limit: 1},
		},
	}
	syncer.OnEventType(event.StateMember, b.handleMember)
	return b, nil
}

// OnInvite sets the invitation callback. It must be called before Run.
func (b *Bot) OnInvite(fn InviteFunc) {
	b.onInvite = fn
}

// UserID is the bot's own user ID once logged in.
func (b *Bot) UserID() id.UserID {
	return b.client.UserID
}

// Login resumes the stored session if it is still valid and logs in with
// the password otherwise.
func (b *Bot) Login(ctx context.Context) error {
	sess, err := b.store.LoadSession()
	switch {
	case errors.Is(err, ErrNoSession):
	case err != nil:
		return fmt.Errorf("failed to load session: %w", err)
	default:
		b.client.UserID = sess.UserID
		b.client.DeviceID = sess.DeviceID
		b.client.AccessToken = sess.AccessToken
		whoami, err := b.client.Whoami(ctx)
		if err == nil {
			b.log.Info().
				Stringer("user_id", whoami.UserID).
				Stringer("device_id", sess.DeviceID).
				Msg("Reused stored session")
			return nil
		}
		if !errors.Is(err, mautrix.MUnknownToken) {
			return fmt.Errorf("failed to verify stored session: %w", err)
		}
		b.log.Warn().Msg("Stored session is no longer valid, logging in again")
		if err := b.store.ClearSession(); err != nil {
			return fmt.Errorf("failed to clear stale session: %w", err)
		}
		b.client.AccessToken = ""
	}

	resp, err := b.client.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: b.cfg.Username,
		},
		Password:                 b.cfg.Password,
		InitialDeviceDisplayName: b.cfg.DeviceName,
		StoreCredentials:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to log in as %s: %w", b.cfg.Username, err)
	}
	err = b.store.SaveSession(Session{
		UserID:      resp.UserID,
		DeviceID:    resp.DeviceID,
		AccessToken: resp.AccessToken,
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	b.log.Info().Stringer("user_id", resp.UserID).Stringer("device_id", resp.DeviceID).Msg("Logged in")
	return nil
}

// Run syncs until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info().Msg("Starting sync")
	err := b.client.SyncWithContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("sync stopped: %w", err)
	}
	return nil
}

// Close releases the state database.
func (b *Bot) Close() error {
	b.client.StopSync()
	return b.store.Close()
}

func (b *Bot) handleMember(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != b.client.UserID.String() {
		return
	}
	member := evt.Content.AsMember()
	if member.Membership != event.MembershipInvite {
		return
	}
	b.log.Debug().Stringer("room_id", evt.RoomID).Stringer("inviter", evt.Sender).Msg("Invited to room")
	if b.onInvite != nil {
		b.onInvite(ctx, evt.RoomID)
	}
}

func (b *Bot) JoinRoom(ctx context.Context, roomID id.RoomID) error {
	if _, err := b.client.JoinRoomByID(ctx, roomID); err != nil {
		return fmt.Errorf("failed to join %s: %w", roomID, err)
	}
	return nil
}

// DeclineInvite rejects an invitation by leaving the room.
func (b *Bot) DeclineInvite(ctx context.Context, roomID id.RoomID) error {
	if _, err := b.client.LeaveRoom(ctx, roomID); err != nil {
		return fmt.Errorf("failed to decline invitation to %s: %w", roomID, err)
	}
	return nil
}

func (b *Bot) IsJoined(ctx context.Context, roomID id.RoomID) (bool, error) {
	resp, err := b.client.JoinedRooms(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list joined rooms: %w", err)
	}
	return slices.Contains(resp.JoinedRooms, roomID), nil
}

// SendMessage posts msg as a notice, so other bots do not react to it.
func (b *Bot) SendMessage(ctx context.Context, roomID id.RoomID, msg msgbuilder.FormattedMessage) error {
	content := &event.MessageEventContent{
		MsgType:       event.MsgNotice,
		Body:          msg.Plain,
		Format:        event.FormatHTML,
		FormattedBody: msg.HTML,
	}
	if _, err := b.client.SendMessageEvent(ctx, roomID, event.EventMessage, content); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", roomID, err)
	}
	return nil
}
