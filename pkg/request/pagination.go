// Package request holds query-string helpers shared by the HTTP handlers.
package request

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination reads limit/offset query params: limit defaults to def and is clamped to [1, maxLimit]; offset >= 0.
func Pagination(c *gin.Context, def, maxLimit int) (limit, offset int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = def
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err = strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
