// Copyright 2024-2026 Aiku AI

package handlers

import (
	"fmt"

	"github.com/aiku/hookrelay/pkg/events"
	"github.com/aiku/hookrelay/pkg/msgbuilder"
)

// generic renders "[tag] message (url)". The URL stays inline text so the
// plain and HTML renderings read the same.
func (s *Set) generic(evt *events.GenericAlert) *Response {
	b := msgbuilder.New()
	if evt.Tag != "" {
		b.Tag(evt.Tag, "")
		b.WriteText(" ")
	}
	b.WriteText(evt.Message)
	if evt.URL != "" {
		fmt.Fprintf(b, " (%s)", evt.URL)
	}
	return respond(b, nil)
}
