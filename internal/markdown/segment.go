// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"regexp"
	"strings"
)

// segment is either a run of prose or one code block.
type segment struct {
	code bool
	lang string
	body string
}

var (
	blockMath = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	// Inline math must not start or end with a space, so "$5 and $10"
	// stays prose.
	inlineMath = regexp.MustCompile(`\$([^\s$](?:[^$\n]*[^\s$])?)\$`)
	codeSpan   = regexp.MustCompile("`[^`\n]*`")
)

// splitFences cuts text into prose and fenced code. An unclosed fence runs
// to the end of the text.
func splitFences(text string) []segment {
	var (
		out   []segment
		prose []string
		code  []string
		fence string
		lang  string
	)
	flushProse := func() {
		if len(prose) > 0 {
			out = append(out, segment{body: strings.Join(prose, "\n")})
			prose = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if fence == "" {
			if marker := fenceMarker(trimmed); marker != "" {
				flushProse()
				fence = marker
				lang = strings.TrimSpace(strings.TrimLeft(trimmed, marker[:1]))
				code = nil
				continue
			}
			prose = append(prose, line)
			continue
		}
		if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, fence[:1]) == "" {
			out = append(out, segment{code: true, lang: lang, body: strings.Join(code, "\n")})
			fence = ""
			continue
		}
		code = append(code, line)
	}

	if fence != "" {
		out = append(out, segment{code: true, lang: lang, body: strings.Join(code, "\n")})
	}
	flushProse()
	return out
}

// fenceMarker returns the run of ` or ~ opening a fence, or "".
func fenceMarker(line string) string {
	for _, ch := range []string{"`", "~"} {
		if strings.HasPrefix(line, ch+ch+ch) {
			n := len(line) - len(strings.TrimLeft(line, ch))
			return strings.Repeat(ch, n)
		}
	}
	return ""
}

// splitMath turns $$...$$ spans of a prose segment into math code blocks
// and $...$ spans of the remaining prose into inline code.
func splitMath(s segment) []segment {
	var out []segment
	rest := s.body
	for {
		loc := blockMath.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		if before := rest[:loc[0]]; strings.TrimSpace(before) != "" {
			out = append(out, segment{body: inlineCode(before)})
		}
		out = append(out, segment{code: true, lang: "math", body: strings.TrimSpace(rest[loc[2]:loc[3]])})
		rest = rest[loc[1]:]
	}
	if strings.TrimSpace(rest) != "" || len(out) == 0 {
		out = append(out, segment{body: inlineCode(rest)})
	}
	return out
}

// inlineCode rewrites inline math outside existing code spans.
func inlineCode(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range codeSpan.FindAllStringIndex(s, -1) {
		b.WriteString(inlineMath.ReplaceAllString(s[last:loc[0]], "`$1`"))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(inlineMath.ReplaceAllString(s[last:], "`$1`"))
	return b.String()
}

// segments is the full pipeline: fences first, then math within prose.
func segments(text string) []segment {
	var out []segment
	for _, s := range splitFences(text) {
		if s.code {
			out = append(out, s)
			continue
		}
		out = append(out, splitMath(s)...)
	}
	return out
}
