package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenorthsolution/djs-utils/internal/common/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler(), Logger())
	r.GET("/", handlers...)
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequestID(t *testing.T) {
	r := newRouter(func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = serve(r, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestAbortWithError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   errors.ErrorCode
	}{
		{name: "not found", err: errors.NewGiveawayNotFoundError("1"), status: http.StatusNotFound, code: errors.ErrCodeGiveawayNotFound},
		{name: "validation", err: errors.NewValidationError("name", "empty"), status: http.StatusBadRequest, code: errors.ErrCodeValidation},
		{name: "invalid state", err: errors.NewInvalidStateError("1", "has ended"), status: http.StatusBadRequest, code: errors.ErrCodeInvalidState},
		{name: "conflict", err: errors.NewConflictError("entry", "dup"), status: http.StatusConflict, code: errors.ErrCodeConflict},
		{name: "not ready", err: errors.NewNotReadyError("manager"), status: http.StatusServiceUnavailable, code: errors.ErrCodeNotReady},
		{name: "messaging", err: errors.NewMessagingError("send", assert.AnError), status: http.StatusBadGateway, code: errors.ErrCodeMessaging},
		{name: "plain", err: assert.AnError, status: http.StatusInternalServerError, code: errors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(func(c *gin.Context) { AbortWithError(c, tt.err) })
			rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))

			require.Equal(t, tt.status, rec.Code)
			var body struct {
				Success bool `json:"success"`
				Error   struct {
					Code errors.ErrorCode `json:"code"`
				} `json:"error"`
				RequestID string `json:"request_id"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	r := newRouter(func(c *gin.Context) { panic("boom") })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestRequireAdminToken(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	tests := []struct {
		name   string
		token  string
		header string
		status int
	}{
		{name: "valid", token: "secret", header: "Bearer secret", status: http.StatusNoContent},
		{name: "wrong token", token: "secret", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "missing header", token: "secret", status: http.StatusUnauthorized},
		{name: "wrong scheme", token: "secret", header: "Basic secret", status: http.StatusUnauthorized},
		{name: "unconfigured", token: "", header: "Bearer ", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(RequireAdminToken(tt.token), ok)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.status, serve(r, req).Code)
		})
	}
}
