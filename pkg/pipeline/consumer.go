// Copyright 2024-2026 Aiku AI

// Package pipeline decouples webhook ingestion from chat delivery.
//
// HTTP handlers push normalized events onto a Queue. A single Consumer pops
// them in arrival order, renders them, resolves their room and sends them.
// Failures are logged per event and never stop the loop.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/hookrelay/pkg/chat"
	"github.com/aiku/hookrelay/pkg/events"
	"github.com/aiku/hookrelay/pkg/handlers"
	"github.com/aiku/hookrelay/pkg/routing"
)

// Handler renders events. *handlers.Set implements it.
type Handler interface {
	Handle(evt events.Event) *handlers.Response
}

// Resolver picks a room for a hint. *routing.Router implements it.
type Resolver interface {
	Resolve(hint *routing.Hint) (id.RoomID, error)
}

// Consumer is the only caller of the chat client's send path.
type Consumer struct {
	queue   *Queue
	handler Handler
	router  Resolver
	client  chat.Client
	log     zerolog.Logger
}

// NewConsumer wires a consumer for queue.
func NewConsumer(queue *Queue, handler Handler, router Resolver, client chat.Client, log zerolog.Logger) *Consumer {
	return &Consumer{
		queue:   queue,
		handler: handler,
		router:  router,
		client:  client,
		log:     log.With().Str("component", "pipeline").Logger(),
	}
}

// Run processes events until the queue is closed and drained or ctx is
// done.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info().Msg("Delivery loop started")
	for {
		evt, ok := c.queue.Pop(ctx)
		if !ok {
			c.log.Info().Msg("Delivery loop stopped")
			return
		}
		outcome := c.process(ctx, evt)
		eventsProcessed.WithLabelValues(outcome).Inc()
	}
}

func (c *Consumer) process(ctx context.Context, evt events.Event) (outcome string) {
	log := c.log.With().Str("source", string(evt.Source())).Type("event_type", evt).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("Handler panicked, dropping event")
			outcome = OutcomePanicked
		}
	}()

	resp := c.handler.Handle(evt)
	if resp == nil {
		log.Debug().Msg("Event produces no message")
		return OutcomeSkipped
	}

	room, err := c.router.Resolve(resp.Hint)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve destination room, dropping message")
		return OutcomeNoRoute
	}
	log = log.With().Stringer("room_id", room).Logger()

	joined, err := c.client.IsJoined(ctx, room)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check room membership, dropping message")
		return OutcomeFailed
	}
	if !joined {
		log.Warn().Msg("Not joined to destination room yet, dropping message")
		return OutcomeNotJoined
	}

	if err := c.client.SendMessage(ctx, room, resp.Message); err != nil {
		log.Error().Err(err).Msg("Failed to send message")
		return OutcomeFailed
	}
	log.Debug().Msg("Message delivered")
	return OutcomeDelivered
}
