package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/space-booking/internal/config"
	"github.com/spec-kit/space-booking/internal/observability"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

type captured struct {
	method, path, query, auth, contentType string
	body                                   []byte
}

func fakeBackend(t *testing.T, status int, body string) (*httptest.Server, *captured, *int32) {
	t.Helper()
	var got captured
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		raw, _ := io.ReadAll(r.Body)
		got = captured{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			body:        raw,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &calls
}

func newGateway(url string) (*Gateway, *observability.Metrics) {
	metrics := observability.NewMetrics()
	return New(NewBackend(config.BackendConfig{URL: url, TimeoutSeconds: 5}, nil, metrics), nil), metrics
}

func routeNamed(t *testing.T, name string) Route {
	t.Helper()
	for _, r := range DefaultRoutes() {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no route %s", name)
	return Route{}
}

func TestForwardCarriesCredentialUnchanged(t *testing.T) {
	srv, got, calls := fakeBackend(t, http.StatusCreated, `{"data":{"id":1}}`)
	gw, metrics := newGateway(srv.URL)

	body := []byte(`{"spaceId":7,"reservationDate":"2025-06-01","timeSlot":"MORNING"}`)
	res, err := gw.Forward(context.Background(), routeNamed(t, "reservations.create"), Inbound{
		ContentType: "application/json",
		Body:        body,
		Credential:  "aaa.bbb.ccc",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, res.Status)
	assert.JSONEq(t, `{"id":1}`, string(res.Body))
	assert.Equal(t, "Bearer aaa.bbb.ccc", got.auth)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, body, got.body)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, int64(1), metrics.Snapshot().Forwarded["reservations.create|201"])
}

func TestForwardRequiredWithoutCredentialNeverCallsBackend(t *testing.T) {
	srv, _, calls := fakeBackend(t, http.StatusOK, `{}`)
	gw, _ := newGateway(srv.URL)

	_, err := gw.Forward(context.Background(), routeNamed(t, "reservations.create"), Inbound{})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestForwardPublicRouteDropsCredential(t *testing.T) {
	srv, got, _ := fakeBackend(t, http.StatusOK, `[{"id":1}]`)
	gw, _ := newGateway(srv.URL)

	res, err := gw.Forward(context.Background(), routeNamed(t, "spaces.by_type"), Inbound{
		RawQuery:   "type=ROOM",
		Credential: "aaa.bbb.ccc",
	})
	require.NoError(t, err)
	assert.Empty(t, got.auth)
	assert.Equal(t, "type=ROOM", got.query)
	assert.Equal(t, "/api/spaces/filter/type", got.path)
	assert.JSONEq(t, `[{"id":1}]`, string(res.Body))
}

func TestForwardSubstitutesParams(t *testing.T) {
	srv, got, _ := fakeBackend(t, http.StatusNoContent, ``)
	gw, _ := newGateway(srv.URL)

	res, err := gw.Forward(context.Background(), routeNamed(t, "reservations.delete"), Inbound{
		Params:     func(string) string { return "12" },
		Credential: "aaa.bbb.ccc",
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/reservations/12", got.path)
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, http.StatusNoContent, res.Status)
	assert.JSONEq(t, `{}`, string(res.Body))
}

func TestForwardPassesConflictThrough(t *testing.T) {
	srv, _, _ := fakeBackend(t, http.StatusConflict, `{"message":"already booked"}`)
	gw, _ := newGateway(srv.URL)

	res, err := gw.Forward(context.Background(), routeNamed(t, "reservations.create"), Inbound{Credential: "a.b.c"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.JSONEq(t, `{"message":"already booked"}`, string(res.Body))
}

func TestForwardKeepsErrorBodyWrapped(t *testing.T) {
	srv, _, _ := fakeBackend(t, http.StatusConflict, `{"data":null,"message":"Slot taken"}`)
	gw, _ := newGateway(srv.URL)

	res, err := gw.Forward(context.Background(), routeNamed(t, "reservations.create"), Inbound{Credential: "a.b.c"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.JSONEq(t, `{"data":null,"message":"Slot taken"}`, string(res.Body))
}

func TestForwardUnwrapsNullDataOnSuccess(t *testing.T) {
	srv, _, _ := fakeBackend(t, http.StatusOK, `{"data":null,"message":"nothing yet"}`)
	gw, _ := newGateway(srv.URL)

	res, err := gw.Forward(context.Background(), routeNamed(t, "reservations.mine"), Inbound{Credential: "a.b.c"})
	require.NoError(t, err)
	assert.Equal(t, "null", string(res.Body))
}

func TestForwardMultipartByteForByte(t *testing.T) {
	srv, got, _ := fakeBackend(t, http.StatusCreated, `{"data":{"id":3}}`)
	gw, _ := newGateway(srv.URL)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("space", `{"name":"Room A","capacity":4,"type":"ROOM"}`))
	part, err := mw.CreateFormFile("file", "a.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte{0x89, 'P', 'N', 'G', 0x00, 0xff})
	require.NoError(t, mw.Close())

	_, err = gw.Forward(context.Background(), routeNamed(t, "spaces.create"), Inbound{
		ContentType: mw.FormDataContentType(),
		Body:        buf.Bytes(),
		Credential:  "a.b.c",
	})
	require.NoError(t, err)
	assert.Equal(t, mw.FormDataContentType(), got.contentType)
	assert.Equal(t, buf.Bytes(), got.body)
}

func TestForwardUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gw, metrics := newGateway(url)
	_, err := gw.Forward(context.Background(), routeNamed(t, "spaces.list"), Inbound{})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, de.Code)
	assert.True(t, IsUpstreamFailure(err))
	assert.Equal(t, int64(1), metrics.Snapshot().UpstreamFailures["spaces.list"])
}

func TestForwardNonJSONKeepsStatus(t *testing.T) {
	srv, _, _ := fakeBackend(t, http.StatusBadGateway, `<html>nginx</html>`)
	gw, _ := newGateway(srv.URL)

	_, err := gw.Forward(context.Background(), routeNamed(t, "spaces.list"), Inbound{})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusBadGateway, de.HTTPStatus)
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, de.Code)
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv, got, _ := fakeBackend(t, http.StatusOK, `{"data":{"token":"a.b.c","username":"alice"},"message":"welcome"}`)
		gw, _ := newGateway(srv.URL)

		res, err := gw.Login(context.Background(), []byte(`{"identifier":"alice","password":"pw"}`), "")
		require.NoError(t, err)
		assert.Equal(t, "a.b.c", res.Token)
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Equal(t, "application/json", got.contentType)

		var body map[string]any
		require.NoError(t, json.Unmarshal(res.Body, &body))
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, "welcome", body["message"])
	})

	t.Run("rejected keeps status and message", func(t *testing.T) {
		srv, _, _ := fakeBackend(t, http.StatusUnauthorized, `{"message":"Bad credentials"}`)
		gw, _ := newGateway(srv.URL)

		_, err := gw.Login(context.Background(), []byte(`{}`), "")
		de := apperrors.ToDomainError(err)
		assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
		assert.Equal(t, "Bad credentials", de.Message)
	})

	t.Run("rejected without message", func(t *testing.T) {
		srv, _, _ := fakeBackend(t, http.StatusForbidden, ``)
		gw, _ := newGateway(srv.URL)

		_, err := gw.Login(context.Background(), []byte(`{}`), "")
		de := apperrors.ToDomainError(err)
		assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
		assert.Equal(t, "Invalid credentials", de.Message)
	})

	t.Run("token missing", func(t *testing.T) {
		srv, _, _ := fakeBackend(t, http.StatusOK, `{"data":{}}`)
		gw, _ := newGateway(srv.URL)

		_, err := gw.Login(context.Background(), []byte(`{}`), "")
		de := apperrors.ToDomainError(err)
		assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
		assert.Equal(t, "Token not found in response", de.Message)
	})
}

func TestRegister(t *testing.T) {
	srv, got, _ := fakeBackend(t, http.StatusCreated, `{"data":{"id":5}}`)
	gw, _ := newGateway(srv.URL)

	res, err := gw.Register(context.Background(), []byte(`{"username":"bob","email":"b@x.io","password":"secret1"}`), "rid-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "/api/auth/register", got.path)
	assert.JSONEq(t, `{"ok":true,"data":{"id":5}}`, string(res.Body))
}

func TestBackendPing(t *testing.T) {
	srv, _, _ := fakeBackend(t, http.StatusNotFound, ``)
	gw, _ := newGateway(srv.URL)
	assert.NoError(t, gw.Backend().Ping(context.Background()))
}
