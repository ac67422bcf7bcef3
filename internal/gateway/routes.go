package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthMode says what a route does with the caller's credential.
type AuthMode string

const (
	// AuthNone never forwards a credential.
	AuthNone AuthMode = "none"
	// AuthOptional forwards a usable credential when present.
	AuthOptional AuthMode = "optional"
	// AuthRequired rejects the call without a usable credential.
	AuthRequired AuthMode = "required"
)

// Route maps one gateway endpoint onto one backend endpoint.
type Route struct {
	Name           string   `yaml:"name"`
	Method         string   `yaml:"method"`
	Path           string   `yaml:"path"`
	Upstream       string   `yaml:"upstream"`
	Auth           AuthMode `yaml:"auth"`
	Unwrap         bool     `yaml:"unwrap"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Timeout is the per-route budget; zero means the backend default.
func (r Route) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// UpstreamPath substitutes :params from the inbound path into Upstream.
func (r Route) UpstreamPath(param func(string) string) string {
	segments := strings.Split(r.Upstream, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			segments[i] = param(seg[1:])
		}
	}
	return strings.Join(segments, "/")
}

// RouteFile is the YAML document accepted by LoadRoutes.
type RouteFile struct {
	Routes []Route `yaml:"routes"`
}

// DefaultRoutes is the route table served when no GATEWAY_ROUTES_FILE is set.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "reservations.list", Method: http.MethodGet, Path: "/api/reservations", Upstream: "/api/reservations", Auth: AuthOptional, Unwrap: true},
		{Name: "reservations.create", Method: http.MethodPost, Path: "/api/reservations", Upstream: "/api/reservations", Auth: AuthRequired, Unwrap: true, TimeoutSeconds: 30},
		{Name: "reservations.mine", Method: http.MethodGet, Path: "/api/reservations/me", Upstream: "/api/reservations/me", Auth: AuthRequired, Unwrap: true},
		{Name: "reservations.delete", Method: http.MethodDelete, Path: "/api/reservations/:id", Upstream: "/api/reservations/:id", Auth: AuthRequired, Unwrap: true},

		{Name: "spaces.list", Method: http.MethodGet, Path: "/api/spaces", Upstream: "/api/spaces", Auth: AuthNone, Unwrap: true},
		{Name: "spaces.by_type", Method: http.MethodGet, Path: "/api/spaces/filter/type", Upstream: "/api/spaces/filter/type", Auth: AuthNone, Unwrap: true},
		{Name: "spaces.get", Method: http.MethodGet, Path: "/api/spaces/:id", Upstream: "/api/spaces/:id", Auth: AuthNone, Unwrap: true},
		{Name: "spaces.create", Method: http.MethodPost, Path: "/api/spaces", Upstream: "/api/spaces", Auth: AuthRequired, Unwrap: true, TimeoutSeconds: 60},
		{Name: "spaces.update", Method: http.MethodPut, Path: "/api/spaces/:id", Upstream: "/api/spaces/:id", Auth: AuthRequired, Unwrap: true, TimeoutSeconds: 60},
		{Name: "spaces.delete", Method: http.MethodDelete, Path: "/api/spaces/:id", Upstream: "/api/spaces/:id", Auth: AuthRequired, Unwrap: true},

		{Name: "users.list", Method: http.MethodGet, Path: "/api/users", Upstream: "/api/users", Auth: AuthRequired, Unwrap: true},
		{Name: "users.me", Method: http.MethodGet, Path: "/api/users/me", Upstream: "/api/users/me", Auth: AuthRequired, Unwrap: true},
		{Name: "users.update_me", Method: http.MethodPut, Path: "/api/users/me", Upstream: "/api/users/me", Auth: AuthRequired, Unwrap: true, TimeoutSeconds: 60},
		{Name: "users.delete", Method: http.MethodDelete, Path: "/api/users/:id", Upstream: "/api/users/:id", Auth: AuthRequired, Unwrap: true},
	}
}

// LoadRoutes reads a route table from a YAML file.
func LoadRoutes(path string) ([]Route, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open routes file: %w", err)
	}
	defer file.Close()

	var doc RouteFile
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode routes file: %w", err)
	}
	if err := ValidateRoutes(doc.Routes); err != nil {
		return nil, err
	}
	return doc.Routes, nil
}

// ValidateRoutes checks a route table and fills defaults in place.
func ValidateRoutes(routes []Route) error {
	if len(routes) == 0 {
		return errors.New("route table is empty")
	}
	seen := make(map[string]struct{}, len(routes))
	for i := range routes {
		r := &routes[i]
		r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
		if r.Auth == "" {
			r.Auth = AuthNone
		}
		if r.Upstream == "" {
			r.Upstream = r.Path
		}
		if r.Name == "" {
			r.Name = r.Method + " " + r.Path
		}

		switch {
		case !strings.HasPrefix(r.Path, "/api/"):
			return fmt.Errorf("route %q: path must start with /api/", r.Name)
		case r.Method == "":
			return fmt.Errorf("route %q: method is required", r.Name)
		case r.Auth != AuthNone && r.Auth != AuthOptional && r.Auth != AuthRequired:
			return fmt.Errorf("route %q: unknown auth mode %q", r.Name, r.Auth)
		}

		key := r.Method + " " + r.Path
		if _, dup := seen[key]; dup {
			return fmt.Errorf("route %q: duplicate %s", r.Name, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
