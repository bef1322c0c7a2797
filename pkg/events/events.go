// Copyright 2024-2026 Aiku AI

// Package events normalizes authenticated webhook payloads into a closed set
// of typed events.
//
// Every variant implements Event through an unexported method, so consumers
// can switch over the concrete types knowing no other package can add one.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Event is a normalized webhook notification.
type Event interface {
	// Source names the webhook source the event came from.
	Source() Source
	isEvent()
}

// Source identifies which endpoint family produced an event.
type Source string

const (
	SourceGitHub  Source = "github"
	SourceSite    Source = "prolosite"
	SourceGeneric Source = "generic"
)

var (
	// ErrUnknownType is returned for a type discriminator this package does
	// not know about. Callers acknowledge such requests and drop them.
	ErrUnknownType = errors.New("unknown event type")
	// ErrMalformedPayload is wrapped by every ParseError.
	ErrMalformedPayload = errors.New("malformed payload")
)

// ParseError describes a payload that could not be decoded into the event
// type its discriminator names.
type ParseError struct {
	Source Source
	Kind   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s %q payload: %v", e.Source, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedPayload, e.Err}
}

var validate = validator.New()

// decode unmarshals body into a new T and checks its required fields.
func decode[T any](source Source, kind string, body []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ParseError{Source: source, Kind: kind, Err: err}
	}
	if err := validate.Struct(&out); err != nil {
		return nil, &ParseError{Source: source, Kind: kind, Err: err}
	}
	return &out, nil
}

func parse[T any, P interface {
	*T
	Event
}](source Source, kind string, body []byte) (Event, error) {
	evt, err := decode[T](source, kind, body)
	if err != nil {
		return nil, err
	}
	return P(evt), nil
}
