// Copyright 2024-2026 Aiku AI

// Package handlers turns normalized events into chat messages.
//
// Handlers are pure: they only read the event and write to a message
// builder. A nil *Response means the event is deliberately not announced.
package handlers

import (
	"github.com/rs/zerolog"

	"github.com/aiku/hookrelay/pkg/events"
	"github.com/aiku/hookrelay/pkg/msgbuilder"
	"github.com/aiku/hookrelay/pkg/routing"
)

// Response is a rendered message and the hint used to pick its room.
type Response struct {
	Message msgbuilder.FormattedMessage
	Hint    *routing.Hint
}

// Set dispatches events to the handler for their variant.
type Set struct {
	log zerolog.Logger
}

// NewSet returns a handler set logging unhandled actions to log.
func NewSet(log zerolog.Logger) *Set {
	return &Set{log: log.With().Str("component", "handlers").Logger()}
}

// Handle renders evt. It returns nil when the event produces no message.
func (s *Set) Handle(evt events.Event) *Response {
	switch evt := evt.(type) {
	case *events.CommitCommentEvent:
		return s.commitComment(evt)
	case *events.CreateEvent:
		return s.create(evt)
	case *events.ForkEvent:
		return s.fork(evt)
	case *events.IssueCommentEvent:
		return s.issueComment(evt)
	case *events.IssuesEvent:
		return s.issues(evt)
	case *events.MembershipEvent:
		return s.membership(evt)
	case *events.OrganizationEvent:
		return s.organization(evt)
	case *events.PingEvent:
		return s.ping(evt)
	case *events.PullRequestEvent:
		return s.pullRequest(evt)
	case *events.PullRequestReviewEvent:
		return s.pullRequestReview(evt)
	case *events.PullRequestReviewCommentEvent:
		return s.pullRequestReviewComment(evt)
	case *events.PushEvent:
		return s.push(evt)
	case *events.RepositoryEvent:
		return s.repository(evt)
	case *events.SiteErrorEvent:
		return s.siteError(evt)
	case *events.ForumPostEvent:
		return s.forumPost(evt)
	case *events.NewSchoolEvent:
		return s.newSchool(evt)
	case *events.ImpersonationEvent:
		return s.impersonation(evt)
	case *events.GenericAlert:
		return s.generic(evt)
	default:
		s.log.Error().Type("event_type", evt).Msg("No handler for event type")
		return nil
	}
}

func (s *Set) unhandled(kind, action string) *Response {
	s.log.Debug().Str("event", kind).Str("action", action).Msg("Ignoring unhandled action")
	return nil
}

func respond(b *msgbuilder.Builder, hint *routing.Hint) *Response {
	return &Response{Message: b.Finalize(), Hint: hint}
}
