// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"encoding/json"
	"net/http"
	"strings"
)

// credential identifies a backend session: a bearer token from the login
// body, the cookies the backend set, or both.
type credential struct {
	Token   string `json:"token,omitempty"`
	Cookies string `json:"cookies,omitempty"`
}

// tokenKeys are the login body fields a bearer token is read from, at the
// top level or under "data".
var tokenKeys = []string{"token", "accessToken", "access_token"}

func encodeCredential(c credential) string {
	if c.Token == "" && c.Cookies == "" {
		return ""
	}
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}

// decodeCredential parses a stored credential. Anything that is not an
// encoded credential is taken as a bare token.
func decodeCredential(s string) credential {
	if s == "" {
		return credential{}
	}
	var c credential
	if strings.HasPrefix(s, "{") && json.Unmarshal([]byte(s), &c) == nil {
		return c
	}
	return credential{Token: s}
}

// apply identifies the backend session on req.
func (c credential) apply(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.Cookies != "" {
		req.Header.Set("Cookie", c.Cookies)
	}
}

func tokenFromBody(body string) string {
	var m map[string]any
	if json.Unmarshal([]byte(body), &m) != nil {
		return ""
	}
	if tok := tokenIn(m); tok != "" {
		return tok
	}
	if data, ok := m["data"].(map[string]any); ok {
		return tokenIn(data)
	}
	return ""
}

func tokenIn(m map[string]any) string {
	for _, k := range tokenKeys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// cookieHeader renders cookies as a Cookie request header value. Cookies
// the backend is deleting are skipped.
func cookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		if ck.MaxAge < 0 || ck.Value == "" {
			continue
		}
		parts = append(parts, (&http.Cookie{Name: ck.Name, Value: ck.Value}).String())
	}
	return strings.Join(parts, "; ")
}
