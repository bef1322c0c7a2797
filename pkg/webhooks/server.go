// Copyright 2024-2026 Aiku AI

// Package webhooks is the HTTP side of the relay. Each endpoint
// authenticates the request, normalizes the body into an event and pushes it
// to the delivery queue. Responses only ever reflect authentication and
// parsing; what happens to an event after it is queued is invisible to the
// sender.
package webhooks

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/aiku/hookrelay/pkg/events"
	"github.com/aiku/hookrelay/pkg/signing"
)

// MaxBodySize is the largest accepted request body.
const MaxBodySize = 1 << 20

const (
	HeaderGitHubEvent     = "X-GitHub-Event"
	HeaderGitHubSignature = "X-Hub-Signature-256"
	headerAuthorization   = "Authorization"
)

var (
	errBodyTooLarge   = errors.New("request body too large")
	errNotJSON        = errors.New("content type must be application/json")
	errHeaderCount    = errors.New("header must be given exactly once")
	errQueueNotActive = errors.New("not accepting events")
)

// Sink receives authenticated events. *pipeline.Queue implements it.
type Sink interface {
	Push(evt events.Event) error
}

// Secrets are the shared secrets of every webhook source.
type Secrets struct {
	GitHub  string
	Site    string
	Generic signing.Endpoints
}

type Server struct {
	secrets Secrets
	sink    Sink
	log     zerolog.Logger
	router  chi.Router
}

func NewServer(secrets Secrets, sink Sink, log zerolog.Logger) *Server {
	s := &Server{
		secrets: secrets,
		sink:    sink,
		log:     log.With().Str("component", "webhooks").Logger(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Handled request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/webhooks", func(r chi.Router) {
		r.Post("/github", s.handleGitHub)
		r.Post("/prolosite/{kind}", s.handleSite)
		r.Post("/generic/{endpoint}", s.handleGeneric)
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "OK")
}

// singleHeader returns the value of a header that must appear exactly once.
func singleHeader(r *http.Request, name string) (string, error) {
	values := r.Header.Values(name)
	if len(values) != 1 {
		return "", fmt.Errorf("%s: %w", name, errHeaderCount)
	}
	return values[0], nil
}

func requireJSON(r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errNotJSON
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

// reject logs why a request was refused and answers with the matching
// status code.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, source events.Source, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, errBodyTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, signing.ErrUnknownEndpoint):
		status = http.StatusNotFound
	case errors.Is(err, errQueueNotActive):
		status = http.StatusServiceUnavailable
	}
	webhooksReceived.WithLabelValues(string(source), resultRejected).Inc()
	hlog.FromRequest(r).Warn().Err(err).
		Str("source", string(source)).
		Int("status", status).
		Msg("Rejected webhook")
	http.Error(w, http.StatusText(status), status)
}

// accept normalizes an authenticated body and queues the event. Unknown
// types are acknowledged and dropped so the sender does not retry them.
func (s *Server) accept(w http.ResponseWriter, r *http.Request, source events.Source, kind string, parse func() (events.Event, error)) {
	log := hlog.FromRequest(r).With().Str("source", string(source)).Str("kind", kind).Logger()
	evt, err := parse()
	switch {
	case errors.Is(err, events.ErrUnknownType):
		log.Debug().Msg("Ignoring unknown event type")
		webhooksReceived.WithLabelValues(string(source), resultIgnored).Inc()
		writeOK(w)
		return
	case err != nil:
		s.reject(w, r, source, err)
		return
	}
	if err := s.sink.Push(evt); err != nil {
		s.reject(w, r, source, fmt.Errorf("%w: %w", errQueueNotActive, err))
		return
	}
	log.Info().Type("event_type", evt).Msg("Queued event")
	webhooksReceived.WithLabelValues(string(source), resultAccepted).Inc()
	writeOK(w)
}
