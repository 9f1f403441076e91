package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fintraq/auth-gateway/internal/middleware"
)

// TenantHeader identifies the backend data partition a request belongs to.
// Its value is the configured prefix joined with the authenticated subject id.
const TenantHeader = "X-Tenant-DB"

// TenantProxy forwards authenticated data-plane requests to the backend
// service. It must be registered behind JWTAuth: the tenant header is derived
// from the verified subject id, never from anything the client sent.
type TenantProxy struct {
	tenantPrefix string
	proxy        *httputil.ReverseProxy
}

// NewTenantProxy builds a reverse proxy for the backend base URL. The proxy
// does not retry; an unreachable backend surfaces as 502 to the client.
func NewTenantProxy(backendURL, tenantPrefix string) (*TenantProxy, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, err
	}
	rp := httputil.NewSingleHostReverseProxy(target)
	inner := rp.Director
	rp.Director = func(req *http.Request) {
		inner(req)
		// Present ourselves as a client of the backend host.
		req.Host = target.Host
	}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("proxy[%s]: %s %s: %v", r.Header.Get(echo.HeaderXRequestID), r.Method, r.URL.Path, err)
		w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"bad gateway"}`))
	}
	return &TenantProxy{tenantPrefix: tenantPrefix, proxy: rp}, nil
}

// Handle forwards one request. Side effects per the gateway contract: inject
// the tenant routing header, carry the request correlation id end-to-end, and
// re-serialize any JSON body so the outbound Content-Length is correct even
// when upstream middleware already consumed the stream.
func (p *TenantProxy) Handle(c echo.Context) error {
	uid := middleware.SubjectID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := c.Request()
	req.Header.Set(TenantHeader, p.tenantPrefix+strconv.FormatUint(uid, 10))
	if id := requestID(c); id != "" {
		req.Header.Set(echo.HeaderXRequestID, id)
	}

	if hasJSONBody(req) {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		if len(body) > 0 {
			// Round-trip through the decoder: the backend only ever sees
			// well-formed JSON with an accurate length.
			var parsed interface{}
			if err := json.Unmarshal(body, &parsed); err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json body"})
			}
			out, err := json.Marshal(parsed)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json body"})
			}
			req.Body = io.NopCloser(bytes.NewReader(out))
			req.ContentLength = int64(len(out))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(echo.HeaderContentLength, strconv.Itoa(len(out)))
		}
	}

	p.proxy.ServeHTTP(c.Response(), req)
	return nil
}

func hasJSONBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}
	return strings.Contains(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
