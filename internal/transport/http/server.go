package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"inkwell/internal/domain/models"
	"inkwell/internal/lib/logger/sl"
	"inkwell/internal/middleware"
	services "inkwell/internal/services/post_service"
	"inkwell/internal/storage"
	"inkwell/internal/transport/http/dto"
	"inkwell/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// FeaturedField is the multipart field that carries a featured media upload.
const FeaturedField = "postFeatured"

type PostService interface {
	CreatePost(ctx context.Context, principal *models.Principal, req dto.CreatePostRequest) (*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	EditPost(ctx context.Context, principal *models.Principal, id string, req dto.UpdatePostRequest) (*models.Post, error)
	AttachFeatured(ctx context.Context, principal *models.Principal, id string, file *multipart.FileHeader) (*models.Post, error)
	DetachFeatured(ctx context.Context, principal *models.Principal, id string) (*models.Post, error)
	DeletePost(ctx context.Context, principal *models.Principal, id string) error
	OpenFeatured(ctx context.Context, id string) (*models.Media, io.ReadCloser, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Routers struct {
	log           *slog.Logger
	PostService   PostService
	Authenticator middleware.Authenticator
	Health        HealthChecker
}

func NewRouter(log *slog.Logger, postService PostService, authenticator middleware.Authenticator, health HealthChecker) *Routers {
	return &Routers{
		log:           log,
		PostService:   postService,
		Authenticator: authenticator,
		Health:        health,
	}
}

// Register mounts the post routes under /api.
func (r *Routers) Register(e *echo.Echo) {
	api := e.Group("/api", middleware.Authenticate(r.log, r.Authenticator))
	{
		api.POST("/post", r.CreatePost)
		api.PATCH("/post", r.MissingPostID)
		api.DELETE("/post", r.MissingPostID)

		api.GET("/post/:id", r.GetPost)
		api.PATCH("/post/:id", r.EditPost)
		api.DELETE("/post/:id", r.DeletePost)

		api.GET("/post/:id/featured", r.GetFeatured)
		api.POST("/post/:id/featured", r.AttachFeatured)
		api.DELETE("/post/:id/featured", r.DetachFeatured)
	}

	e.GET("/health", r.HealthCheck)
}

// CreatePost godoc
// @Summary Create a post
// @Description Creates a post authored by the caller. Title and body are sanitized before they are stored.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body dto.CreatePostRequest true "Post content"
// @Success 200 {object} response.PostResponse "Created post"
// @Failure 400 {object} response.ErrorResponse "Missing credential or invalid request"
// @Failure 500 {object} response.ErrorResponse "Internal error"
// @Security ApiKeyAuth
// @Router /api/post [post]
func (r *Routers) CreatePost(c echo.Context) error {
	const op = "http.routers.CreatePost"

	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return r.fail(c, op, services.ErrUnauthenticated)
	}

	var req dto.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		r.log.Warn("invalid request data", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	post, err := r.PostService.CreatePost(c.Request().Context(), principal, req)
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.PostResponse{Post: post})
}

// GetPost godoc
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID" format(uuid)
// @Success 200 {object} response.PostResponse "Post"
// @Failure 404 {object} response.ErrorResponse "Post not found"
// @Router /api/post/{id} [get]
func (r *Routers) GetPost(c echo.Context) error {
	const op = "http.routers.GetPost"

	post, err := r.PostService.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.PostResponse{Post: post})
}

// EditPost godoc
// @Summary Edit a post
// @Description Applies a partial update. Absent fields are kept, an empty metadata object clears the metadata.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID" format(uuid)
// @Param request body dto.UpdatePostRequest true "Fields to change"
// @Success 200 {object} response.PostResponse "Edited post"
// @Failure 400 {object} response.ErrorResponse "Missing credential or invalid request"
// @Failure 404 {object} response.ErrorResponse "Post not found"
// @Failure 409 {object} response.ErrorResponse "Post is being changed"
// @Security ApiKeyAuth
// @Router /api/post/{id} [patch]
func (r *Routers) EditPost(c echo.Context) error {
	const op = "http.routers.EditPost"

	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return r.fail(c, op, services.ErrUnauthenticated)
	}

	var req dto.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		r.log.Warn("invalid request data", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	post, err := r.PostService.EditPost(c.Request().Context(), principal, c.Param("id"), req)
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.PostResponse{Post: post})
}

// DeletePost godoc
// @Summary Delete a post
// @Description Deletes the post together with its featured media.
// @Tags posts
// @Produce json
// @Param id path string true "Post ID" format(uuid)
// @Success 200 {object} response.SuccessResponse "Deleted"
// @Failure 400 {object} response.ErrorResponse "Missing credential"
// @Failure 404 {object} response.ErrorResponse "Post not found"
// @Failure 409 {object} response.ErrorResponse "Post is being changed"
// @Security ApiKeyAuth
// @Router /api/post/{id} [delete]
func (r *Routers) DeletePost(c echo.Context) error {
	const op = "http.routers.DeletePost"

	err := r.PostService.DeletePost(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse{Success: true})
}

// MissingPostID answers edit and delete requests that name no post.
func (r *Routers) MissingPostID(c echo.Context) error {
	return c.JSON(http.StatusNotFound, response.ErrPostNotFound)
}

// AttachFeatured godoc
// @Summary Attach featured media
// @Description Uploads a file and makes it the featured media of the post, replacing any previous one.
// @Tags featured
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Post ID" format(uuid)
// @Param postFeatured formData file true "Featured media file"
// @Success 200 {object} response.PostResponse "Post with media"
// @Failure 400 {object} response.ErrorResponse "Missing credential, unknown post or missing upload"
// @Failure 409 {object} response.ErrorResponse "Post is being changed"
// @Security ApiKeyAuth
// @Router /api/post/{id}/featured [post]
func (r *Routers) AttachFeatured(c echo.Context) error {
	const op = "http.routers.AttachFeatured"

	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return r.fail(c, op, services.ErrUnauthenticated)
	}

	file, err := c.FormFile(FeaturedField)
	if err != nil {
		// a missing or unreadable upload is reported by the service
		file = nil
	}

	post, err := r.PostService.AttachFeatured(c.Request().Context(), principal, c.Param("id"), file)
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.PostResponse{Post: post})
}

// DetachFeatured godoc
// @Summary Detach featured media
// @Tags featured
// @Produce json
// @Param id path string true "Post ID" format(uuid)
// @Success 200 {object} response.SuccessResponse "Post without media"
// @Failure 400 {object} response.ErrorResponse "Missing credential"
// @Failure 404 {object} response.ErrorResponse "Post not found"
// @Failure 409 {object} response.ErrorResponse "Post is being changed"
// @Security ApiKeyAuth
// @Router /api/post/{id}/featured [delete]
func (r *Routers) DetachFeatured(c echo.Context) error {
	const op = "http.routers.DetachFeatured"

	post, err := r.PostService.DetachFeatured(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return r.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse{Success: true, Post: post})
}

// GetFeatured godoc
// @Summary Download featured media
// @Tags featured
// @Produce octet-stream
// @Param id path string true "Post ID" format(uuid)
// @Success 200 {file} binary "Media payload"
// @Failure 404 {object} response.ErrorResponse "Post or media not found"
// @Router /api/post/{id}/featured [get]
func (r *Routers) GetFeatured(c echo.Context) error {
	const op = "http.routers.GetFeatured"

	media, rc, err := r.PostService.OpenFeatured(c.Request().Context(), c.Param("id"))
	if err != nil {
		return r.fail(c, op, err)
	}
	defer rc.Close()

	contentType := media.MimeType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", media.OriginalFilename))

	return c.Stream(http.StatusOK, contentType, rc)
}

// HealthCheck godoc
// @Summary Health check
// @Tags service
// @Produce json
// @Success 200 {object} response.HealthResponse "Service is up"
// @Failure 503 {object} response.HealthResponse "Database is unreachable"
// @Router /health [get]
func (r *Routers) HealthCheck(c echo.Context) error {
	const op = "http.routers.HealthCheck"

	if err := r.Health.HealthCheck(c.Request().Context()); err != nil {
		r.log.Error("health check failed", slog.String("op", op), sl.Err(err))

		return c.JSON(http.StatusServiceUnavailable, response.HealthResponse{Status: "unavailable"})
	}

	return c.JSON(http.StatusOK, response.HealthResponse{Status: "ok"})
}

func (r *Routers) fail(c echo.Context, op string, err error) error {
	status, body := statusFor(err)

	if status >= http.StatusInternalServerError {
		r.log.Error("request failed", slog.String("op", op), sl.Err(err))
	} else {
		r.log.Debug("request rejected", slog.String("op", op), slog.Int("status", status), sl.Err(err))
	}

	return c.JSON(status, body)
}

// statusFor maps service error kinds to a status code and a client-safe body.
func statusFor(err error) (int, response.ErrorResponse) {
	var verr *services.ValidationError

	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusBadRequest, response.ErrAuthenticationFailed
	case errors.As(err, &verr):
		return http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", verr.Reason)
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, response.ErrorResponseWithDetails("validation_failed", "")
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, response.ErrPostNotFound
	case errors.Is(err, storage.ErrPostLocked):
		return http.StatusConflict, response.ErrPostBusy
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
