// Package credential reads the claims embedded in a bearer credential.
//
// Decoding is UNTRUSTED: the signature is never verified here. Claims read by
// this package may only drive UI affordances (which menu entries to show,
// whether a session looks expired). They must never be used to authorize a
// request; the backend re-validates the credential on every call it receives.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedCredential is returned when a credential cannot be split into
	// its segments or its payload is not a claims map.
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrExpired is returned by Check for structurally valid credentials whose
	// expiry lies in the past.
	ErrExpired = errors.New("credential expired")
)

// Claims is the advisory view of a credential's payload.
type Claims struct {
	Subject   string
	Role      string
	Roles     []string
	ExpiresAt *time.Time
	Extra     map[string]any
}

var parser = jwt.NewParser()

// Decode extracts claims from raw without verifying its signature.
func Decode(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty", ErrMalformedCredential)
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, mapClaims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}

	claims := Claims{
		Subject: subjectOf(mapClaims["sub"]),
		Roles:   collectRoles(mapClaims["role"], mapClaims["roles"]),
		Extra:   make(map[string]any),
	}
	if len(claims.Roles) > 0 {
		claims.Role = claims.Roles[0]
	}

	// A non-numeric exp is kept in Extra and the credential treated as non-expiring.
	skip := map[string]bool{"sub": true, "exp": true, "role": true, "roles": true}
	if exp, err := mapClaims.GetExpirationTime(); err != nil {
		skip["exp"] = false
	} else if exp != nil {
		at := exp.Time
		claims.ExpiresAt = &at
	}

	for key, val := range mapClaims {
		if skip[key] {
			continue
		}
		claims.Extra[key] = val
	}
	return claims, nil
}

// IsExpired reports whether c carries an expiry strictly before now.
func IsExpired(c Claims, now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// Check decodes raw and rejects it when already expired at now.
func Check(raw string, now time.Time) (Claims, error) {
	claims, err := Decode(raw)
	if err != nil {
		return Claims{}, err
	}
	if IsExpired(claims, now) {
		return claims, ErrExpired
	}
	return claims, nil
}

// HasRole reports whether any role contains name, ignoring case and a ROLE_ prefix.
func (c Claims) HasRole(name string) bool {
	want := strings.ToUpper(strings.TrimPrefix(strings.ToUpper(name), "ROLE_"))
	for _, role := range c.Roles {
		if strings.Contains(strings.ToUpper(role), want) {
			return true
		}
	}
	return false
}

// subjectOf reads sub as a string; numeric subjects are formatted, anything else is "".
func subjectOf(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	}
	return ""
}

// collectRoles accepts "ROLE_ADMIN", "[ROLE_ADMIN, ROLE_USER]" or a JSON array.
func collectRoles(values ...any) []string {
	var roles []string
	for _, v := range values {
		switch typed := v.(type) {
		case string:
			roles = append(roles, splitRoleString(typed)...)
		case []any:
			for _, item := range typed {
				if s, ok := item.(string); ok {
					roles = append(roles, splitRoleString(s)...)
				}
			}
		case []string:
			for _, s := range typed {
				roles = append(roles, splitRoleString(s)...)
			}
		}
	}
	return roles
}

func splitRoleString(s string) []string {
	s = strings.NewReplacer("[", "", "]", "").Replace(s)
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
