// Copyright 2024-2026 Aiku AI

// Package membership answers room invitations for the bot.
//
// Each invitation runs its own state machine in its own goroutine:
//
//	Pending -> Joined
//	Pending -> DeclinedUnauthorized
//	Pending -> Abandoned
//
// Invitations to rooms outside the authorized set are declined right away.
// Homeservers may deliver an invite before the invitee is allowed to join,
// so failed joins are retried with exponential backoff until the cumulative
// wait would exceed a ceiling.
package membership

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/hookrelay/pkg/chat"
)

const (
	DefaultBaseDelay = 2 * time.Second
	DefaultMaxWait   = time.Hour
)

// Status is the state of one invitation.
type Status int

const (
	Pending Status = iota
	Joined
	DeclinedUnauthorized
	Abandoned
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Joined:
		return "joined"
	case DeclinedUnauthorized:
		return "declined_unauthorized"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

var invitesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hookrelay_membership_invites_total",
	Help: "Room invitations by final status.",
}, []string{"status"})

// Authorizer tells which rooms the bot may join. *routing.Router implements
// it.
type Authorizer interface {
	IsAuthorized(roomID id.RoomID) bool
}

// Config holds the retry schedule. Zero values select the defaults.
type Config struct {
	BaseDelay time.Duration
	MaxWait   time.Duration
}

type Option func(m *Manager)

// WithClock replaces the wall clock used for retry waits.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// Manager runs invitation state machines.
type Manager struct {
	inviter chat.Inviter
	auth    Authorizer
	clock   clock.Clock
	base    time.Duration
	maxWait time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	pending map[id.RoomID]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewManager(inviter chat.Inviter, auth Authorizer, cfg Config, log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		inviter: inviter,
		auth:    auth,
		clock:   clock.New(),
		base:    cfg.BaseDelay,
		maxWait: cfg.MaxWait,
		log:     log.With().Str("component", "membership").Logger(),
		pending: make(map[id.RoomID]struct{}),
	}
	if m.base <= 0 {
		m.base = DefaultBaseDelay
	}
	if m.maxWait <= 0 {
		m.maxWait = DefaultMaxWait
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleInvite starts processing an invitation to roomID in the background.
// It returns false when an invitation to the same room is still pending or
// the manager was closed. ctx bounds the whole retry sequence.
func (m *Manager) HandleInvite(ctx context.Context, roomID id.RoomID) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.log.Debug().Stringer("room_id", roomID).Msg("Ignoring invitation after shutdown")
		return false
	}
	if _, ok := m.pending[roomID]; ok {
		m.mu.Unlock()
		m.log.Debug().Stringer("room_id", roomID).Msg("Invitation already being processed")
		return false
	}
	m.pending[roomID] = struct{}{}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.pending, roomID)
			m.mu.Unlock()
		}()
		m.process(ctx, roomID)
	}()
	return true
}

// Wait blocks until every started invitation reached a final status.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close stops accepting invitations and waits for the pending ones.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wg.Wait()
}

// invitation is the state of one invitation while it is pending.
type invitation struct {
	roomID    id.RoomID
	attempts  int
	nextDelay time.Duration
	waited    time.Duration
	status    Status
}

func (m *Manager) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = m.maxWait
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// process drives one invitation to a final status.
func (m *Manager) process(ctx context.Context, roomID id.RoomID) Status {
	inv := &invitation{roomID: roomID, status: Pending}
	log := m.log.With().Stringer("room_id", roomID).Logger()
	log.Info().Msg("Received room invitation")

	defer func() {
		invitesTotal.WithLabelValues(inv.status.String()).Inc()
	}()

	if !m.auth.IsAuthorized(roomID) {
		log.Warn().Msg("Not authorized to join room, declining invitation")
		if err := m.inviter.DeclineInvite(ctx, roomID); err != nil {
			log.Error().Err(err).Msg("Failed to decline invitation")
		}
		inv.status = DeclinedUnauthorized
		return inv.status
	}

	bo := m.newBackOff()
	for {
		inv.attempts++
		err := m.inviter.JoinRoom(ctx, roomID)
		if err == nil {
			log.Info().Int("attempts", inv.attempts).Msg("Joined room")
			inv.status = Joined
			return inv.status
		}

		inv.nextDelay = bo.NextBackOff()
		if inv.nextDelay == backoff.Stop || inv.waited+inv.nextDelay > m.maxWait {
			log.Error().Err(err).
				Int("attempts", inv.attempts).
				Dur("waited", inv.waited).
				Msg("Giving up on joining room")
			inv.status = Abandoned
			return inv.status
		}
		log.Warn().Err(err).
			Int("attempt", inv.attempts).
			Dur("retry_in", inv.nextDelay).
			Msg("Failed to join room, retrying")

		select {
		case <-m.clock.After(inv.nextDelay):
			inv.waited += inv.nextDelay
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Msg("Stopped retrying room join")
			inv.status = Abandoned
			return inv.status
		}
	}
}
