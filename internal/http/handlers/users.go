package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/importer"
	"github.com/geocoder89/userhub/internal/service"
	"github.com/geocoder89/userhub/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	// importWriteWindow replaces the server WriteTimeout for an upload,
	// since rows are hashed one by one before the response is written.
	importWriteWindow = 30 * time.Minute
)

type UserService interface {
	Register(ctx context.Context, in user.CreateInput) (service.Registered, error)
	List(ctx context.Context, page, limit int) (user.Page, error)
	Get(ctx context.Context, id int64) (user.User, error)
	Update(ctx context.Context, id int64, in user.UpdateInput) error
	Delete(ctx context.Context, id int64) error
}

type UserImporter interface {
	ImportFile(ctx context.Context, path string) (importer.Report, error)
}

type UsersHandler struct {
	users     UserService
	importer  UserImporter
	uploadDir string
	log       *slog.Logger
}

func NewUsersHandler(users UserService, imp UserImporter, uploadDir string, log *slog.Logger) *UsersHandler {
	return &UsersHandler{
		users:     users,
		importer:  imp,
		uploadDir: uploadDir,
		log:       log,
	}
}

type createUserResponse struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  user.Role `json:"role"`
	Token string    `json:"token"`
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var in user.CreateInput

	if !BindJSON(ctx, &in) {
		return
	}

	reg, err := h.users.Register(ctx.Request.Context(), in)
	if err != nil {
		h.respondErr(ctx, err, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, createUserResponse{
		ID:    reg.User.ID,
		Name:  reg.User.Name,
		Email: reg.User.Email,
		Role:  reg.User.Role,
		Token: reg.Token,
	})
}

func (h *UsersHandler) List(ctx *gin.Context) {
	page := queryInt(ctx, "page", defaultPage)
	limit := min(queryInt(ctx, "limit", defaultLimit), maxLimit)

	res, err := h.users.List(ctx.Request.Context(), page, limit)
	if err != nil {
		h.respondErr(ctx, err, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	u, err := h.users.Get(ctx.Request.Context(), id)
	if err != nil {
		h.respondErr(ctx, err, "Could not fetch user")
		return
	}

	respondUser(ctx, u)
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var in user.UpdateInput

	if !BindJSON(ctx, &in) {
		return
	}

	if err := h.users.Update(ctx.Request.Context(), id, in); err != nil {
		h.respondErr(ctx, err, "Could not update user")
		return
	}

	RespondMessage(ctx, http.StatusOK, "User updated successfully")
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := h.users.Delete(ctx.Request.Context(), id); err != nil {
		h.respondErr(ctx, err, "Could not delete user")
		return
	}

	RespondMessage(ctx, http.StatusOK, "User deleted successfully")
}

// Upload stores the multipart "file" part under a random name and imports it.
// The importer owns the temp file from then on and removes it.
func (h *UsersHandler) Upload(ctx *gin.Context) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Upload is too large", nil)
			return
		}
		RespondError(ctx, http.StatusBadRequest, "missing_file", "No file uploaded", nil)
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "upload_dir_failed", "dir", h.uploadDir, "err", err)
		RespondInternal(ctx, "Failed to upload users")
		return
	}

	path := filepath.Join(h.uploadDir, uuid.NewString()+".csv")

	if err := ctx.SaveUploadedFile(fh, path); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "upload_save_failed", "err", err)
		_ = os.Remove(path)
		RespondInternal(ctx, "Failed to upload users")
		return
	}

	rc := http.NewResponseController(ctx.Writer)
	if err := rc.SetWriteDeadline(time.Now().Add(importWriteWindow)); err != nil {
		h.log.WarnContext(ctx.Request.Context(), "upload_deadline_not_extended", "err", err)
	}

	rep, err := h.importer.ImportFile(ctx.Request.Context(), path)
	if err != nil {
		if errors.Is(err, importer.ErrBadHeader) {
			RespondBadRequest(ctx, "CSV header line could not be parsed", nil)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "upload_import_failed", "err", err, "inserted", rep.Inserted)
		RespondInternal(ctx, "Failed to upload users")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":  "Users uploaded successfully",
		"total":    rep.Total,
		"inserted": rep.Inserted,
		"skipped":  rep.Skipped,
	})
}

func (h *UsersHandler) respondErr(ctx *gin.Context, err error, fallback string) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		RespondValidation(ctx, verr)
	case errors.Is(err, user.ErrEmailTaken):
		RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already in use.", nil)
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	default:
		h.log.ErrorContext(ctx.Request.Context(), "user_request_failed", "route", ctx.FullPath(), "err", err)
		RespondInternal(ctx, fallback)
	}
}

func pathID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		RespondError(ctx, http.StatusBadRequest, "invalid_id", "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// queryInt falls back to def for missing, malformed or non-positive values.
func queryInt(ctx *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(ctx.Query(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}
