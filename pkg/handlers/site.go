// Copyright 2024-2026 Aiku AI

package handlers

import (
	"fmt"

	"github.com/aiku/hookrelay/pkg/events"
	"github.com/aiku/hookrelay/pkg/msgbuilder"
)

const impersonationColor = "#d9534f"

func (s *Set) siteError(evt *events.SiteErrorEvent) *Response {
	b := msgbuilder.New()
	b.Tag("django crash", "⚠")
	fmt.Fprintf(b, " %s ", evt.Request.Method)
	b.Styled(msgbuilder.Style{Kind: msgbuilder.Code}, evt.Request.Path)
	if evt.Request.User != "" {
		fmt.Fprintf(b, " (%s)", evt.Request.User)
	}
	b.WriteText(": ")
	b.WriteText(msgbuilder.Shorten(firstLine(evt.Exception.Value), msgbuilder.LongBudget))
	return respond(b, nil)
}

func (s *Set) forumPost(evt *events.ForumPostEvent) *Response {
	b := msgbuilder.New()
	b.Tag("forum", "")
	fmt.Fprintf(b, " %s posted", evt.Username)
	if evt.Forum != "" {
		fmt.Fprintf(b, " in %s", evt.Forum)
	}
	b.WriteText(": ")
	b.PrimaryLink(msgbuilder.Shorten(evt.Title, msgbuilder.LongBudget), evt.URL)
	return respond(b, nil)
}

func (s *Set) newSchool(evt *events.NewSchoolEvent) *Response {
	b := msgbuilder.New()
	b.Tag("new school", "")
	b.WriteText(" ")
	b.PrimaryLink(msgbuilder.Shorten(evt.Name, msgbuilder.LongBudget), evt.URL)
	if evt.City != "" {
		fmt.Fprintf(b, " (%s)", evt.City)
	}
	b.WriteText(" is waiting for validation")
	return respond(b, nil)
}

func (s *Set) impersonation(evt *events.ImpersonationEvent) *Response {
	verb := "started"
	if evt.Action == "end" {
		verb = "stopped"
	}
	b := msgbuilder.New()
	b.Tag("impersonation", "")
	b.WriteText(" ")
	b.OpenStyle(msgbuilder.Style{Kind: msgbuilder.Colored, Color: impersonationColor})
	fmt.Fprintf(b, "%s %s impersonating %s", evt.Hijacker, verb, evt.Hijacked)
	b.CloseLast()
	return respond(b, nil)
}
