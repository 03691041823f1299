// Package agents holds the three pipeline agents and the explain guide writer.
// Every agent receives the caller's LLM client per call; none keeps a credential.
package agents

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// decodeInto converts a structured-output object into a typed value.
func decodeInto(obj map[string]any, out any) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

var fence = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\\n?(.*?)\\n?```$")

// StripCodeFences removes one markdown fence wrapping the whole reply.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// ErrorFragment renders a failure as HTML the client can display in place of a document.
func ErrorFragment(format string, args ...any) string {
	return `<div class="error"><p>` + html.EscapeString(fmt.Sprintf(format, args...)) + `</p></div>`
}
