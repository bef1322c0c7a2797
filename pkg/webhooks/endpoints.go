// Copyright 2024-2026 Aiku AI

package webhooks

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aiku/hookrelay/pkg/events"
	"github.com/aiku/hookrelay/pkg/signing"
)

func (s *Server) handleGitHub(w http.ResponseWriter, r *http.Request) {
	if err := requireJSON(r); err != nil {
		s.reject(w, r, events.SourceGitHub, err)
		return
	}
	kind, err := singleHeader(r, HeaderGitHubEvent)
	if err != nil {
		s.reject(w, r, events.SourceGitHub, err)
		return
	}
	signature, err := singleHeader(r, HeaderGitHubSignature)
	if err != nil {
		s.reject(w, r, events.SourceGitHub, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.reject(w, r, events.SourceGitHub, err)
		return
	}
	if err := signing.VerifyHMAC(s.secrets.GitHub, signature, body); err != nil {
		s.reject(w, r, events.SourceGitHub, err)
		return
	}
	s.accept(w, r, events.SourceGitHub, kind, func() (events.Event, error) {
		return events.ParseGitHub(kind, body)
	})
}

func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	token, err := singleHeader(r, headerAuthorization)
	if err != nil {
		s.reject(w, r, events.SourceSite, err)
		return
	}
	if err := signing.VerifyToken(s.secrets.Site, token); err != nil {
		s.reject(w, r, events.SourceSite, err)
		return
	}
	if err := requireJSON(r); err != nil {
		s.reject(w, r, events.SourceSite, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.reject(w, r, events.SourceSite, err)
		return
	}
	s.accept(w, r, events.SourceSite, kind, func() (events.Event, error) {
		return events.ParseSite(kind, body)
	})
}

// handleGeneric serves per-tenant alert endpoints. An endpoint missing from
// the configuration is a 404 whatever the request carries.
func (s *Server) handleGeneric(w http.ResponseWriter, r *http.Request) {
	endpoint := chi.URLParam(r, "endpoint")
	if err := s.secrets.Generic.Verify(endpoint, r.Header.Get(headerAuthorization)); err != nil {
		s.reject(w, r, events.SourceGeneric, err)
		return
	}
	if err := requireJSON(r); err != nil {
		s.reject(w, r, events.SourceGeneric, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.reject(w, r, events.SourceGeneric, err)
		return
	}
	s.accept(w, r, events.SourceGeneric, endpoint, func() (events.Event, error) {
		return events.ParseGeneric(endpoint, body)
	})
}
