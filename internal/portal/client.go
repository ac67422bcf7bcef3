// Package portal is a typed client for the gateway's same-origin routes.
// The gateway keeps the credential in a cookie, so the client carries a cookie
// jar and never sees an Authorization header.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/domain"
	"github.com/spec-kit/space-booking/internal/gateway"
)

const defaultTimeout = 15 * time.Second

// Client talks to one gateway.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        http.CookieJar
	cookieName string
	logger     *zap.Logger
}

// Options overrides client dependencies.
type Options struct {
	HTTPClient *http.Client
	CookieName string
	Logger     *zap.Logger
}

// New creates a client for the gateway at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("baseURL is empty")
	}
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse baseURL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	client.Jar = jar

	if opts.CookieName == "" {
		opts.CookieName = "pt_jwt"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{baseURL: parsed, httpClient: client, jar: jar, cookieName: opts.CookieName, logger: opts.Logger}, nil
}

// NewFromConfig builds a client from the portal and cookie settings.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	return New(cfg.Portal.URL, Options{
		HTTPClient: &http.Client{Timeout: cfg.Portal.Timeout()},
		CookieName: cfg.Cookie.Name,
		Logger:     logger,
	})
}

// Error is a non-success answer from the gateway.
type Error struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%d %s)", e.Op, e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Status)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}

// Upload is an optional image attached to a multipart create or update.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Credential returns the credential cookie currently held by the jar.
func (c *Client) Credential() string {
	for _, ck := range c.jar.Cookies(c.baseURL) {
		if ck.Name == c.cookieName {
			return ck.Value
		}
	}
	return ""
}

// UseCredential seeds the jar with raw; an empty raw removes the cookie.
func (c *Client) UseCredential(raw string) {
	ck := &http.Cookie{Name: c.cookieName, Value: raw, Path: "/"}
	if raw == "" {
		ck.MaxAge = -1
	}
	c.jar.SetCookies(c.baseURL, []*http.Cookie{ck})
}

// Login exchanges identifier and password for a credential. The gateway sets
// the cookie and relays {"ok":true,"data":{...}}; the unwrapped data is returned.
func (c *Client) Login(ctx context.Context, identifier, password string) (domain.LoginResult, error) {
	const op = "Login"
	var res domain.LoginResult
	status, err := c.call(ctx, op, http.MethodPost, "/api/auth/login", domain.LoginRequest{Identifier: identifier, Password: password}, &res)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if res.Token == "" {
		return domain.LoginResult{}, &Error{Op: op, Status: status, Message: "no token in response"}
	}
	return res, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	_, err := c.call(ctx, "Register", http.MethodPost, "/api/auth/register", req, nil)
	return err
}

// Logout asks the gateway to clear the cookie and drops it locally either way.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, "Logout", http.MethodPost, "/api/auth/logout", nil, nil)
	c.UseCredential("")
	return err
}

// Spaces lists every space.
func (c *Client) Spaces(ctx context.Context) ([]domain.Space, error) {
	var out []domain.Space
	_, err := c.call(ctx, "Spaces", http.MethodGet, "/api/spaces", nil, &out)
	return out, err
}

// SpacesByType lists spaces of one type.
func (c *Client) SpacesByType(ctx context.Context, t domain.SpaceType) ([]domain.Space, error) {
	var out []domain.Space
	path := "/api/spaces/filter/type?type=" + url.QueryEscape(string(t))
	_, err := c.call(ctx, "SpacesByType", http.MethodGet, path, nil, &out)
	return out, err
}

// Space fetches one space.
func (c *Client) Space(ctx context.Context, id int64) (domain.Space, error) {
	var out domain.Space
	_, err := c.call(ctx, "Space", http.MethodGet, spacePath(id), nil, &out)
	return out, err
}

// CreateSpace uploads a new space with an optional image.
func (c *Client) CreateSpace(ctx context.Context, in domain.SpaceInput, image *Upload) (domain.Space, error) {
	var out domain.Space
	_, err := c.multipart(ctx, "CreateSpace", http.MethodPost, "/api/spaces", "space", in, image, &out)
	return out, err
}

// UpdateSpace replaces a space's fields and optionally its image.
func (c *Client) UpdateSpace(ctx context.Context, id int64, in domain.SpaceInput, image *Upload) (domain.Space, error) {
	var out domain.Space
	_, err := c.multipart(ctx, "UpdateSpace", http.MethodPut, spacePath(id), "space", in, image, &out)
	return out, err
}

// DeleteSpace removes a space.
func (c *Client) DeleteSpace(ctx context.Context, id int64) error {
	_, err := c.call(ctx, "DeleteSpace", http.MethodDelete, spacePath(id), nil, nil)
	return err
}

// Reservations lists every reservation; admins see all, others what the backend allows.
func (c *Client) Reservations(ctx context.Context) ([]domain.Reservation, error) {
	var out []domain.Reservation
	_, err := c.call(ctx, "Reservations", http.MethodGet, "/api/reservations", nil, &out)
	return out, err
}

// MyReservations lists the caller's reservations.
func (c *Client) MyReservations(ctx context.Context) ([]domain.Reservation, error) {
	var out []domain.Reservation
	_, err := c.call(ctx, "MyReservations", http.MethodGet, "/api/reservations/me", nil, &out)
	return out, err
}

// CreateReservation posts one reservation and reports the gateway status as is.
// An error means no status was received.
func (c *Client) CreateReservation(ctx context.Context, req domain.ReservationRequest) (int, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/reservations", "application/json", req)
	if err != nil {
		return 0, fmt.Errorf("CreateReservation: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// DeleteReservation cancels a reservation.
func (c *Client) DeleteReservation(ctx context.Context, id int64) error {
	_, err := c.call(ctx, "DeleteReservation", http.MethodDelete, "/api/reservations/"+strconv.FormatInt(id, 10), nil, nil)
	return err
}

// Users lists accounts (admin only).
func (c *Client) Users(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	_, err := c.call(ctx, "Users", http.MethodGet, "/api/users", nil, &out)
	return out, err
}

// DeleteUser removes an account (admin only).
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	_, err := c.call(ctx, "DeleteUser", http.MethodDelete, "/api/users/"+strconv.FormatInt(id, 10), nil, nil)
	return err
}

// Me fetches the caller's profile.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var out domain.User
	_, err := c.call(ctx, "Me", http.MethodGet, "/api/users/me", nil, &out)
	return out, err
}

// UpdateMe changes the caller's profile and optionally the avatar.
func (c *Client) UpdateMe(ctx context.Context, in domain.UserUpdate, image *Upload) (domain.User, error) {
	var out domain.User
	_, err := c.multipart(ctx, "UpdateMe", http.MethodPut, "/api/users/me", "user", in, image, &out)
	return out, err
}

func spacePath(id int64) string {
	return "/api/spaces/" + strconv.FormatInt(id, 10)
}

// call sends a JSON request and decodes a 2xx body into out.
func (c *Client) call(ctx context.Context, op, method, path string, payload, out any) (int, error) {
	var contentType string
	if payload != nil {
		contentType = "application/json"
	}
	resp, err := c.send(ctx, method, path, contentType, payload)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	return c.finish(op, resp, out)
}

func (c *Client) multipart(ctx context.Context, op, method, path, field string, payload any, image *Upload, out any) (int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("%s: encode %s: %w", op, field, err)
	}
	if err := mw.WriteField(field, string(encoded)); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if image != nil && image.Content != nil {
		part, err := mw.CreateFormFile("file", image.Filename)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if _, err := io.Copy(part, image.Content); err != nil {
			return 0, fmt.Errorf("%s: read image: %w", op, err)
		}
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.send(ctx, method, path, mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	return c.finish(op, resp, out)
}

// send issues one request. payload may be nil, raw bytes, or a value to JSON-encode.
func (c *Client) send(ctx context.Context, method, path, contentType string, payload any) (*http.Response, error) {
	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(p)
	default:
		encoded, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("gateway unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("gateway call", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
	return resp, nil
}

func (c *Client) finish(op string, resp *http.Response, out any) (int, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, errorFromBody(op, resp.StatusCode, raw)
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := gateway.Decode(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s: decode body: %w", op, err)
	}
	return resp.StatusCode, nil
}

// errorFromBody reads either the gateway's {"error":{...}} envelope or a
// relayed backend {"message": ...} body.
func errorFromBody(op string, status int, raw []byte) error {
	var body struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	perr := &Error{Op: op, Status: status, Message: http.StatusText(status)}
	if json.Unmarshal(raw, &body) != nil {
		return perr
	}
	switch {
	case body.Error != nil:
		perr.Code = body.Error.Code
		if body.Error.Message != "" {
			perr.Message = body.Error.Message
		}
	case body.Message != "":
		perr.Message = body.Message
	}
	return perr
}
