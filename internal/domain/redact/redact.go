// Package redact resolves SecretSelector paths against a request/response
// pair and extracts the secret byte strings those paths designate, the
// first stage of the notarization pipeline's redaction step.
package redact

import (
	"encoding/json"
	"strconv"
	"strings"
)

// side identifies which half of the exchange a selector targets.
type side int

const (
	sideReq side = iota
	sideRes
)

// Resolve splits a comma-separated SecretSelector list and extracts the
// secrets it designates from the request and response bodies/headers. It
// preserves input order within each side and silently skips selectors that
// parse to nothing: a missing secret must not leak via an error path and
// must not abort notarization (§4.1).
//
// Selectors are of the grammar ("req"|"res") ":" ("header"|"body") ":" locator.
func Resolve(reqHeaders, resHeaders map[string]string, reqBody, resBody, selectors string) (reqSecrets, resSecrets []string) {
	for _, raw := range strings.Split(selectors, ",") {
		sel := strings.TrimSpace(raw)
		if sel == "" {
			continue
		}

		s, rest, ok := splitSide(sel)
		if !ok {
			continue
		}

		var headers map[string]string
		var body string
		if s == sideReq {
			headers, body = reqHeaders, reqBody
		} else {
			headers, body = resHeaders, resBody
		}

		value, found := resolveLocator(rest, headers, body)
		if !found {
			continue
		}

		if s == sideReq {
			reqSecrets = append(reqSecrets, value)
		} else {
			resSecrets = append(resSecrets, value)
		}
	}
	return reqSecrets, resSecrets
}

// splitSide consumes the leading "req:" or "res:" segment.
func splitSide(sel string) (side, string, bool) {
	switch {
	case strings.HasPrefix(sel, "req:"):
		return sideReq, strings.TrimPrefix(sel, "req:"), true
	case strings.HasPrefix(sel, "res:"):
		return sideRes, strings.TrimPrefix(sel, "res:"), true
	default:
		return 0, "", false
	}
}

// resolveLocator handles the "header:<name>" / "body:<path>" portion of a selector.
func resolveLocator(rest string, headers map[string]string, body string) (string, bool) {
	switch {
	case strings.HasPrefix(rest, "header:"):
		name := strings.ToLower(strings.TrimPrefix(rest, "header:"))
		v, ok := headers[name]
		return v, ok
	case strings.HasPrefix(rest, "body:"):
		path := strings.TrimPrefix(rest, "body:")
		return resolveBody(body, path)
	default:
		return "", false
	}
}

// resolveBody resolves a body locator: empty means the whole body, a
// dotted path walks the parsed JSON body. A non-JSON body resolves to the
// whole body when path is empty, and to nothing otherwise.
func resolveBody(body, path string) (string, bool) {
	if path == "" {
		return body, true
	}

	var parsed any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return "", false
	}

	segments := strings.Split(path, ".")
	current := parsed
	for _, seg := range segments {
		next, ok := step(current, seg)
		if !ok {
			return "", false
		}
		current = next
	}

	return renderTerminal(current), true
}

// step indexes current by seg: numerically into an array if seg parses as
// a non-negative integer, otherwise as an object field.
func step(current any, seg string) (any, bool) {
	if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 {
		arr, ok := current.([]any)
		if !ok || idx >= len(arr) {
			return nil, false
		}
		return arr[idx], true
	}

	obj, ok := current.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[seg]
	return v, ok
}

// renderTerminal renders the resolved JSON value as its marshaled form,
// then strips exactly one pair of surrounding double quotes — mirroring
// JSON string rendering for the common "string value" case. This also
// strips quotes from any scalar whose rendering happens to start and end
// with one, which is an intentional quirk carried over unchanged.
func renderTerminal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
