package streams

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcast/backend/internal/auth"
	"github.com/sportcast/backend/internal/middleware"
	"github.com/sportcast/backend/internal/models"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	h := NewHandler(f.reg, nil, nil)
	jwt := auth.NewJWTService("test-secret", 1)

	r := gin.New()
	g := r.Group("/streams")
	g.GET("", middleware.OptionalJWT(jwt), h.List)
	g.GET("/:id", middleware.OptionalJWT(jwt), h.Get)
	authed := g.Group("", middleware.JWT(jwt))
	authed.POST("", h.Create)
	authed.POST("/:id/start", h.Start)
	authed.POST("/:id/end", h.End)
	authed.PUT("/:id/score", h.UpdateScore)
	authed.POST("/:id/thumbnail", h.UploadThumbnail)
	return r, jwt
}

func do(r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestHandlerLifecycle(t *testing.T) {
	r, jwt := newTestRouter(t)
	owner, err := jwt.Generate(uuid.New(), "Owner", models.RoleBroadcaster)
	require.NoError(t, err)
	stranger, err := jwt.Generate(uuid.New(), "Stranger", models.RoleViewer)
	require.NoError(t, err)

	w, env := do(r, http.MethodPost, "/streams", owner, gin.H{"title": "Derby", "category": "SOCCER"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var s models.Stream
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.NotEmpty(t, s.SessionKey)

	// session key is only visible to the owner
	_, env = do(r, http.MethodGet, "/streams/"+s.ID.String(), "", nil)
	var public models.Stream
	require.NoError(t, json.Unmarshal(env.Data, &public))
	assert.Empty(t, public.SessionKey)
	assert.Empty(t, public.IngestURL)
	_, env = do(r, http.MethodGet, "/streams/"+s.ID.String(), owner, nil)
	var private models.Stream
	require.NoError(t, json.Unmarshal(env.Data, &private))
	assert.Equal(t, s.SessionKey, private.SessionKey)

	w, _ = do(r, http.MethodPost, "/streams/"+s.ID.String()+"/start", stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(r, http.MethodPost, "/streams/"+s.ID.String()+"/end", owner, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(r, http.MethodPost, "/streams/"+s.ID.String()+"/start", owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(r, http.MethodPut, "/streams/"+s.ID.String()+"/score", owner, gin.H{"home_score": 0, "away_score": -2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(r, http.MethodPut, "/streams/"+s.ID.String()+"/score", owner, gin.H{"home_score": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, env = do(r, http.MethodPut, "/streams/"+s.ID.String()+"/score", owner, gin.H{"home_score": 0, "away_score": 0})
	require.Equal(t, http.StatusOK, w.Code, env.Error)

	w, _ = do(r, http.MethodGet, "/streams?status=LIVE", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(r, http.MethodGet, "/streams?status=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	r, jwt := newTestRouter(t)
	owner, _ := jwt.Generate(uuid.New(), "Owner", models.RoleBroadcaster)

	w, _ := do(r, http.MethodPost, "/streams", "", gin.H{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(r, http.MethodPost, "/streams", owner, gin.H{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(r, http.MethodGet, "/streams/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(r, http.MethodGet, "/streams/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(r, http.MethodPost, "/streams/"+uuid.NewString()+"/thumbnail", owner, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
