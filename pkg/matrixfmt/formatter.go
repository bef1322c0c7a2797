// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package matrixfmt converts rendered notification HTML to Mattermost
// markdown.
package matrixfmt

import (
	"html"
	"regexp"
	"strings"

	"github.com/aiku/hookrelay/pkg/msgbuilder"
)

var (
	tokenRe = regexp.MustCompile(`<[^>]*>|[^<]+|<`)
	tagRe   = regexp.MustCompile(`^<(/?)([a-zA-Z]+)`)
	hrefRe  = regexp.MustCompile(`href="([^"]*)"`)
)

// markdownEscaper backslash-escapes the characters Mattermost would read as
// inline formatting.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`~`, `\~`,
)

// Parse returns msg as Mattermost markdown. Messages without HTML are
// returned as their plain text.
func Parse(msg msgbuilder.FormattedMessage) string {
	if msg.HTML == "" {
		return msg.Plain
	}
	return Convert(msg.HTML)
}

// Convert turns an HTML fragment into markdown. Text is unescaped and its
// markdown characters escaped, except inside code spans. Font colors have no
// markdown equivalent and are dropped along with any other unknown tag.
func Convert(s string) string {
	out := []*strings.Builder{{}}
	var hrefs []string
	inCode := false
	for _, token := range tokenRe.FindAllString(s, -1) {
		cur := out[len(out)-1]
		if len(token) < 2 || token[0] != '<' {
			text := html.UnescapeString(token)
			if !inCode {
				text = markdownEscaper.Replace(text)
			}
			cur.WriteString(text)
			continue
		}
		m := tagRe.FindStringSubmatch(token)
		if m == nil {
			continue
		}
		closing := m[1] == "/"
		switch strings.ToLower(m[2]) {
		case "b", "strong":
			cur.WriteString("**")
		case "i", "em":
			cur.WriteString("_")
		case "code":
			cur.WriteString("`")
			inCode = !closing
		case "br":
			cur.WriteString("\n")
		case "a":
			if !closing {
				href := ""
				if h := hrefRe.FindStringSubmatch(token); h != nil {
					href = html.UnescapeString(h[1])
				}
				hrefs = append(hrefs, href)
				out = append(out, &strings.Builder{})
			} else if len(hrefs) > 0 {
				href := hrefs[len(hrefs)-1]
				hrefs = hrefs[:len(hrefs)-1]
				out = out[:len(out)-1]
				label := cur.String()
				if label == "" {
					label = markdownEscaper.Replace(href)
				}
				out[len(out)-1].WriteString("[" + label + "](" + href + ")")
			}
		}
	}
	// Unclosed links keep their label.
	for len(out) > 1 {
		label := out[len(out)-1].String()
		out = out[:len(out)-1]
		out[len(out)-1].WriteString(label)
	}
	return strings.TrimSpace(out[0].String())
}
