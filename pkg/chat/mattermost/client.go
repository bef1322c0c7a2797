// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package mattermost delivers notifications to Mattermost channels. Room IDs
// are Mattermost channel IDs. Mattermost has no invitations, so the bot adds
// itself to every destination channel on start.
package mattermost

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/hookrelay/pkg/chat"
	"github.com/aiku/hookrelay/pkg/matrixfmt"
	"github.com/aiku/hookrelay/pkg/msgbuilder"
)

// ErrNotConnected is returned by room operations before Connect succeeded.
var ErrNotConnected = errors.New("not connected to Mattermost")

type Config struct {
	ServerURL string
	Token     string
}

// Client posts as the bot account owning the configured token.
type Client struct {
	client *model.Client4
	userID string
	log    zerolog.Logger
}

var (
	_ chat.Client  = (*Client)(nil)
	_ chat.Inviter = (*Client)(nil)
)

func New(cfg Config, log zerolog.Logger) *Client {
	client := model.NewAPIv4Client(cfg.ServerURL)
	client.SetToken(cfg.Token)
	return &Client{
		client: client,
		log:    log.With().Str("component", "mattermost").Str("server_url", cfg.ServerURL).Logger(),
	}
}

// Connect verifies the token and remembers the bot's user ID.
func (c *Client) Connect(ctx context.Context) error {
	me, _, err := c.client.GetMe(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to verify Mattermost token: %w", err)
	}
	c.userID = me.Id
	c.log.Info().Str("user_id", me.Id).Str("username", me.Username).Msg("Authenticated")
	return nil
}

func (c *Client) JoinRoom(ctx context.Context, roomID id.RoomID) error {
	if c.userID == "" {
		return ErrNotConnected
	}
	if _, _, err := c.client.AddChannelMember(ctx, string(roomID), c.userID); err != nil {
		return fmt.Errorf("failed to join channel %s: %w", roomID, err)
	}
	c.log.Debug().Stringer("room_id", roomID).Msg("Joined channel")
	return nil
}

// DeclineInvite removes the bot from a channel someone else added it to.
func (c *Client) DeclineInvite(ctx context.Context, roomID id.RoomID) error {
	if c.userID == "" {
		return ErrNotConnected
	}
	if _, err := c.client.RemoveUserFromChannel(ctx, string(roomID), c.userID); err != nil {
		return fmt.Errorf("failed to leave channel %s: %w", roomID, err)
	}
	return nil
}

func (c *Client) IsJoined(ctx context.Context, roomID id.RoomID) (bool, error) {
	if c.userID == "" {
		return false, ErrNotConnected
	}
	_, resp, err := c.client.GetChannelMember(ctx, string(roomID), c.userID, "")
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up channel membership: %w", err)
	}
	return true, nil
}

// SendMessage posts msg converted to Mattermost markdown.
func (c *Client) SendMessage(ctx context.Context, roomID id.RoomID, msg msgbuilder.FormattedMessage) error {
	post := &model.Post{
		ChannelId: string(roomID),
		Message:   matrixfmt.Parse(msg),
	}
	if _, _, err := c.client.CreatePost(ctx, post); err != nil {
		return fmt.Errorf("failed to post to channel %s: %w", roomID, err)
	}
	return nil
}
