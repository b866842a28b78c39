// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the session cookie name when none is configured.
const DefaultCookieName = "accounts_session"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// CookieCarrier carries the session token in an HTTP cookie. Requests may
// also present the token as an "Authorization: Bearer" header.
type CookieCarrier struct {
	w     http.ResponseWriter
	r     *http.Request
	cfg   CookieConfig
	token string
}

// NewCookieCarrier reads the session token from r.
func NewCookieCarrier(w http.ResponseWriter, r *http.Request, cfg CookieConfig) *CookieCarrier {
	if cfg.Name == "" {
		cfg.Name = DefaultCookieName
	}
	c := &CookieCarrier{w: w, r: r, cfg: cfg}
	if cookie, err := r.Cookie(cfg.Name); err == nil {
		c.token = cookie.Value
	} else if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		c.token = strings.TrimSpace(bearer)
	}
	return c
}

// SessionToken implements account.SessionCarrier.
func (c *CookieCarrier) SessionToken() string { return c.token }

// SetSessionToken implements account.SessionCarrier.
func (c *CookieCarrier) SetSessionToken(token string, expiresAt time.Time) {
	c.token = token
	http.SetCookie(c.w, &http.Cookie{
		Name:     c.cfg.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionToken implements account.SessionCarrier.
func (c *CookieCarrier) ClearSessionToken() {
	c.token = ""
	http.SetCookie(c.w, &http.Cookie{
		Name:     c.cfg.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserAgent implements ClientInfo.
func (c *CookieCarrier) UserAgent() string { return c.r.UserAgent() }

// RemoteIP implements ClientInfo.
func (c *CookieCarrier) RemoteIP() string {
	host, _, err := net.SplitHostPort(c.r.RemoteAddr)
	if err != nil {
		return c.r.RemoteAddr
	}
	return host
}
