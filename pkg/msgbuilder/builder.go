// Copyright 2024-2026 Aiku AI

// Package msgbuilder accumulates a plain-text and an HTML rendering of the
// same chat message side by side.
//
// Literal text always goes through WriteText, so both renderings stay in sync:
// the plain side receives it verbatim and the HTML side receives it escaped.
// Non-primary link targets only appear in the HTML. The primary link target is
// appended once to the plain text by Finalize.
package msgbuilder

import (
	"html"
	"strings"
)

// Separator sits between a message and its primary URL in the plain rendering.
const Separator = "⋅"

// FormattedMessage is a finished message ready for delivery.
type FormattedMessage struct {
	Plain      string
	HTML       string
	PrimaryURL string
}

// StyleKind identifies an inline HTML style span.
type StyleKind int

const (
	Bold StyleKind = iota
	Code
	Colored
)

// Style is an inline span. Color is only used by Colored styles and must be a
// CSS hex color such as "#ff0000".
type Style struct {
	Kind  StyleKind
	Color string
}

func (s Style) openTag() string {
	switch s.Kind {
	case Bold:
		return "<b>"
	case Code:
		return "<code>"
	case Colored:
		return `<font color="` + html.EscapeString(s.Color) + `">`
	default:
		panic("msgbuilder: unknown style kind")
	}
}

func (s Style) closeTag() string {
	switch s.Kind {
	case Bold:
		return "</b>"
	case Code:
		return "</code>"
	case Colored:
		return "</font>"
	default:
		panic("msgbuilder: unknown style kind")
	}
}

// Builder builds a FormattedMessage. The zero value is ready to use.
type Builder struct {
	plain      strings.Builder
	html       strings.Builder
	styles     []Style
	primaryURL string
	hasPrimary bool
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// WriteText appends literal text to both renderings.
func (b *Builder) WriteText(s string) {
	b.plain.WriteString(s)
	b.html.WriteString(html.EscapeString(s))
}

// Write implements io.Writer with WriteText semantics, so the builder can be
// used with fmt.Fprintf.
func (b *Builder) Write(p []byte) (int, error) {
	b.WriteText(string(p))
	return len(p), nil
}

// Tag writes a bold bracketed label such as "[⚠ django crash]". glyph may be
// empty.
func (b *Builder) Tag(label, glyph string) {
	text := "[" + label + "]"
	if glyph != "" {
		text = "[" + glyph + " " + label + "]"
	}
	b.OpenStyle(Style{Kind: Bold})
	b.WriteText(text)
	b.CloseLast()
}

// Link writes text pointing at url. The plain rendering only gets the text.
func (b *Builder) Link(text, url string) {
	b.plain.WriteString(text)
	b.html.WriteString(`<a href="` + html.EscapeString(url) + `">`)
	b.html.WriteString(html.EscapeString(text))
	b.html.WriteString("</a>")
}

// PrimaryLink writes a link like Link and records url as the message's
// primary link. If called more than once the last URL wins.
func (b *Builder) PrimaryLink(text, url string) {
	if b.hasPrimary {
		assertf("msgbuilder: primary link set twice (%q, then %q)", b.primaryURL, url)
	}
	b.Link(text, url)
	b.primaryURL = url
	b.hasPrimary = true
}

// OpenStyle starts an inline style span that must be closed with CloseLast.
func (b *Builder) OpenStyle(style Style) {
	b.html.WriteString(style.openTag())
	b.styles = append(b.styles, style)
}

// CloseLast closes the most recently opened style. Closing with nothing open
// is a programming error and panics.
func (b *Builder) CloseLast() {
	if len(b.styles) == 0 {
		panic("msgbuilder: CloseLast called with no open style")
	}
	last := b.styles[len(b.styles)-1]
	b.styles = b.styles[:len(b.styles)-1]
	b.html.WriteString(last.closeTag())
}

// Styled writes s wrapped in a single style span.
func (b *Builder) Styled(style Style, s string) {
	b.OpenStyle(style)
	b.WriteText(s)
	b.CloseLast()
}

// Finalize returns the finished message. All styles must be closed; an open
// style is a handler bug and panics instead of being closed silently.
func (b *Builder) Finalize() FormattedMessage {
	if len(b.styles) != 0 {
		panic("msgbuilder: Finalize called with open styles")
	}
	plain := b.plain.String()
	if b.hasPrimary {
		plain += " " + Separator + " " + b.primaryURL
	}
	return FormattedMessage{
		Plain:      plain,
		HTML:       b.html.String(),
		PrimaryURL: b.primaryURL,
	}
}
