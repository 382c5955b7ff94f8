package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcast/backend/pkg/apperr"
)

func TestErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.NotFound("stream not found"), http.StatusNotFound, "stream not found"},
		{apperr.Forbidden("only the owner can end this stream"), http.StatusForbidden, "only the owner can end this stream"},
		{apperr.Unauthorized("stream is not live"), http.StatusUnauthorized, "stream is not live"},
		{apperr.Validation("content too long"), http.StatusBadRequest, "content too long"},
		{fmt.Errorf("start: %w", apperr.InvalidTransition("stream has ended")), http.StatusConflict, "stream has ended"},
		{errors.New("connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		Error(c, tc.err)

		assert.Equal(t, tc.status, w.Code)
		var body Body
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, tc.msg, body.Error)
	}
}
