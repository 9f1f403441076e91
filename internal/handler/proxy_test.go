package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintraq/auth-gateway/internal/middleware"
)

type captured struct {
	tenant    string
	requestID string
	ctype     string
	clen      int64
	body      string
	path      string
}

func proxyTo(t *testing.T, backend *httptest.Server) *TenantProxy {
	t.Helper()
	p, err := NewTenantProxy(backend.URL, "fintraq_")
	require.NoError(t, err)
	return p
}

func forward(t *testing.T, p *TenantProxy, uid uint64, method, path, body, ctype string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if ctype != "" {
		req.Header.Set(echo.HeaderContentType, ctype)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "req-123")
	if uid != 0 {
		c.Set(middleware.CtxUserID, uid)
	}
	require.NoError(t, p.Handle(c))
	return rec
}

func TestProxyInjectsTenantAndCorrelationHeaders(t *testing.T) {
	var got captured
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = captured{
			tenant:    r.Header.Get(TenantHeader),
			requestID: r.Header.Get(echo.HeaderXRequestID),
			ctype:     r.Header.Get(echo.HeaderContentType),
			clen:      r.ContentLength,
			body:      string(b),
			path:      r.URL.Path,
		}
		w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer backend.Close()

	p := proxyTo(t, backend)
	// Sloppy whitespace in: the backend must still get exact-length JSON.
	rec := forward(t, p, 42, http.MethodPost, "/api/transactions",
		"{ \"amount\": 10,\n \"label\": \"food\" }", echo.MIMEApplicationJSON)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"id":7}`, rec.Body.String())

	assert.Equal(t, "fintraq_42", got.tenant)
	assert.Equal(t, "req-123", got.requestID)
	assert.Equal(t, "/api/transactions", got.path)
	assert.Contains(t, got.ctype, echo.MIMEApplicationJSON)
	assert.Equal(t, `{"amount":10,"label":"food"}`, got.body)
	assert.Equal(t, int64(len(got.body)), got.clen)
}

func TestProxyForwardsGetWithoutBodyRewrite(t *testing.T) {
	var tenant string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant = r.Header.Get(TenantHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	p := proxyTo(t, backend)
	rec := forward(t, p, 9, http.MethodGet, "/api/categories", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fintraq_9", tenant)
}

func TestProxyRejectsInvalidJSONBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be reached with an invalid body")
	}))
	defer backend.Close()

	p := proxyTo(t, backend)
	rec := forward(t, p, 42, http.MethodPost, "/api/transactions", "{not json", echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyWithoutIdentity(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be reached without a verified identity")
	}))
	defer backend.Close()

	p := proxyTo(t, backend)
	rec := forward(t, p, 0, http.MethodGet, "/api/categories", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProxyBackendUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close() // nothing listens anymore

	p := proxyTo(t, backend)
	rec := forward(t, p, 42, http.MethodGet, "/api/categories", "", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad gateway")
}
