package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/space-booking/internal/api/http"
	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/credstore"
	"github.com/spec-kit/space-booking/internal/devbackend"
	"github.com/spec-kit/space-booking/internal/events"
	"github.com/spec-kit/space-booking/internal/gateway"
	"github.com/spec-kit/space-booking/internal/portal"
	"github.com/spec-kit/space-booking/internal/session"
)

// syncBuffer lets the watch goroutine and the test share output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	t          *testing.T
	gatewayURL string
	slot       credstore.Slot
}

// newHarness runs the dev backend behind a real gateway and returns a slot
// shared by every App the test creates.
func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		App:       config.AppConfig{Name: "gateway-test", Version: "test", RequestTimeoutSeconds: 5},
		Cookie:    config.CookieConfig{Name: "pt_jwt", MaxAgeMinutes: 60},
		RateLimit: config.RateLimitConfig{LoginRequestsPerMinute: 1000, LoginBurst: 1000},
		Auth:      config.AuthConfig{JWTSecret: "dev-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4},
		DevBackend: config.DevBackendConfig{
			AdminUsername: "admin", AdminEmail: "admin@example.com", AdminPassword: "admin-pw",
		},
	}

	dev, err := devbackend.New(context.Background(), cfg, "http://dev.local", devbackend.DefaultSeedSpaces(), nil)
	require.NoError(t, err)
	t.Cleanup(dev.Close)
	backend := httptest.NewServer(adaptor.FiberApp(dev.App))
	t.Cleanup(backend.Close)

	cfg.Backend = config.BackendConfig{URL: backend.URL, TimeoutSeconds: 5}
	gw := httptest.NewServer(adaptor.FiberApp(httptransport.NewGatewayApp(cfg, gateway.DefaultRoutes(), zap.NewNop())))
	t.Cleanup(gw.Close)

	return &harness{
		t:          t,
		gatewayURL: gw.URL,
		slot:       credstore.NewMemory("spacectl", events.NewInMemoryDispatcher(nil)),
	}
}

// process builds a fresh App the way a new spacectl invocation would.
func (h *harness) process(out *syncBuffer) (*App, *session.Store) {
	h.t.Helper()
	client, err := portal.New(h.gatewayURL, portal.Options{CookieName: "pt_jwt"})
	require.NoError(h.t, err)
	store := session.New(h.slot)
	return NewApp(client, store, nil, strings.NewReader(""), out), store
}

func (h *harness) run(password string, args ...string) (string, error) {
	h.t.Helper()
	withPassword(h.t, password)
	out := &syncBuffer{}
	app, _ := h.process(out)
	err := app.Run(context.Background(), args)
	return out.String(), err
}

func withPassword(t *testing.T, password string) {
	t.Helper()
	prev := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() { readPassword = prev })
}

func TestRunUnknownCommand(t *testing.T) {
	out := &syncBuffer{}
	client, err := portal.New("http://127.0.0.1:1", portal.Options{})
	require.NoError(t, err)
	app := NewApp(client, session.New(credstore.NewMemory("x", nil)), nil, strings.NewReader(""), out)

	err = app.Run(context.Background(), []string{"explode"})
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, out.String(), "reserve <spaceId>")

	require.NoError(t, app.Run(context.Background(), nil))
}

func TestArgumentValidation(t *testing.T) {
	client, err := portal.New("http://127.0.0.1:1", portal.Options{})
	require.NoError(t, err)
	app := NewApp(client, session.New(credstore.NewMemory("x", nil)), nil, strings.NewReader(""), &syncBuffer{})
	ctx := context.Background()

	cases := [][]string{
		{"reserve", "1", "2030-01-01"},
		{"reserve", "abc", "2030-01-01", "MORNING"},
		{"reserve", "1", "2030-01-01", "EVENING"},
		{"space"},
		{"cancel", "-3"},
		{"spaces", "-type", "sofa"},
		{"my-reservations", "-status", "pending"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			assert.ErrorIs(t, app.Run(ctx, args), ErrUsage)
		})
	}
}

func TestReserveRequiresLogin(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "reserve", "1", "2030-01-01", "MORNING")
	assert.EqualError(t, err, "login required")
}

func TestBookingFlow(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("secret1", "register", "-username", "alice", "-email", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Account alice created")

	out, err = h.run("secret1", "login", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice (ROLE_USER)")

	out, err = h.run("", "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "user menu for alice")
	assert.Contains(t, out, "My reservations")
	assert.Contains(t, out, "Actions: reserve")

	out, err = h.run("", "spaces", "-type", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Hot Desk 1")
	assert.NotContains(t, out, "Meeting Room A")

	out, err = h.run("", "reserve", "1", "2030-01-01", "MORNING")
	require.NoError(t, err)
	assert.Contains(t, out, "Reservation Created: Reservation created successfully")
	assert.Contains(t, out, "Meeting Room A", "created reservations refresh the list")

	out, err = h.run("", "reserve", "1", "2030-01-01", "full-day")
	assert.ErrorIs(t, err, ErrNotCreated)
	assert.Contains(t, out, "Reservation Unavailable: This space is already booked for 2030-01-01 (FULL DAY)")

	out, err = h.run("", "my-reservations", "-status", "cancelled")
	require.NoError(t, err)
	assert.Contains(t, out, "No reservations")

	_, err = h.run("", "users")
	assert.Error(t, err, "non-admins cannot list users")

	out, err = h.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	out, err = h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestAdminViews(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("secret1", "register", "-username", "bob", "-email", "bob@example.com")
	require.NoError(t, err)
	_, err = h.run("secret1", "login", "bob")
	require.NoError(t, err)
	_, err = h.run("", "reserve", "2", "2030-02-01", "AFTERNOON")
	require.NoError(t, err)

	_, err = h.run("admin-pw", "login", "admin")
	require.NoError(t, err)

	out, err := h.run("", "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "admin menu for admin")
	assert.Contains(t, out, "manage users")
	assert.NotContains(t, out, "My reservations")

	_, err = h.run("", "reserve", "1", "2030-01-01", "MORNING")
	assert.EqualError(t, err, "administrators cannot make reservations")

	out, err = h.run("", "reservations", "-status", "active")
	require.NoError(t, err)
	assert.Contains(t, out, "Meeting Room B")
	assert.Contains(t, out, "bob")

	out, err = h.run("", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "bob@example.com")
}

func TestRejectedCredentialClearsSession(t *testing.T) {
	h := newHarness(t)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "mallory", "role": "ROLE_USER", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("not-the-backend-secret"))
	require.NoError(t, err)
	require.NoError(t, h.slot.Save(context.Background(), forged))

	_, err = h.run("", "my-reservations")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log in again")

	_, present, err := h.slot.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, present)
}

func TestWatchFollowsOtherProcesses(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("secret1", "register", "-username", "carol", "-email", "carol@example.com")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	watcher, _ := h.process(out)
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx, []string{"watch"}) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "logged out") }, 2*time.Second, 10*time.Millisecond)

	_, err = h.run("secret1", "login", "carol")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "logged in as carol (user menu)")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
