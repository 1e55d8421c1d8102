package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// respondUser serves u with a validator built from its row version, so the
// check for If-None-Match runs before anything is marshalled and every replica
// hands out the same tag for the same row.
func respondUser(ctx *gin.Context, u user.User) {
	etag := `"` + u.Version() + `"`

	ctx.Header("ETag", etag)
	if !u.UpdatedAt.IsZero() {
		ctx.Header("Last-Modified", u.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	// the record can change at any time; revalidate instead of no-store
	ctx.Header("Cache-Control", "private, no-cache")

	if notModified(ctx.Request, etag, u.UpdatedAt) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// notModified gives If-None-Match precedence over If-Modified-Since (RFC 9110 13.2.2).
func notModified(r *http.Request, etag string, updatedAt time.Time) bool {
	if inm := strings.TrimSpace(r.Header.Get("If-None-Match")); inm != "" {
		if inm == "*" {
			return true
		}
		for _, part := range strings.Split(inm, ",") {
			// weak comparison: W/"x" matches "x"
			if strings.TrimPrefix(strings.TrimSpace(part), "W/") == etag {
				return true
			}
		}
		return false
	}

	ims := r.Header.Get("If-Modified-Since")
	if ims == "" || updatedAt.IsZero() {
		return false
	}
	t, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return !updatedAt.Truncate(time.Second).After(t)
}
