package handler

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-file-service/internal/usecase/user"
	pkgerrors "user-file-service/pkg/errors"
	"user-file-service/pkg/logger"
)

// unknownID is used for path ids that are not whole numbers. It never matches
// a stored user, so such requests end up as not found.
const unknownID int64 = -1

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Service
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Service, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ValidationErrorResponse carries the violations of a rejected payload
type ValidationErrorResponse struct {
	Error []pkgerrors.Violation `json:"error"`
}

// bodyViolation is reported when the request body is not a JSON object.
var bodyViolation = pkgerrors.Violation{
	Field:   "body",
	Rule:    "object",
	Message: "body must be a JSON object",
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	resp, err := h.uc.ListUsers(c.Request.Context(), user.ListUsersRequest{})
	if err != nil {
		h.handleError(c, err)
		return
	}

	users := resp.Users
	if users == nil {
		users = users.Clone()
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id := h.parseID(c)

	resp, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": resp.User})
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	resp, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{Payload: payload})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": resp.ID})
}

// UpdateUser handles PUT /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id := h.parseID(c)

	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	resp, err := h.uc.UpdateUser(c.Request.Context(), user.UpdateUserRequest{ID: id, Payload: payload})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": resp.User})
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := h.parseID(c)

	resp, err := h.uc.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": resp.User})
}

// parseID reads the :id path parameter. Any numeric spelling of a whole
// number is accepted ("7", "7.0", " 7 "); everything else maps to unknownID.
func (h *UserHandler) parseID(c *gin.Context) int64 {
	raw := c.Param("id")
	id, ok := parseID(raw)
	if !ok {
		logger.WithContext(c.Request.Context(), h.log).Debug("unparseable user id", zap.String("id", raw))
		return unknownID
	}
	return id
}

func parseID(raw string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// bindPayload decodes the body into a payload. An empty body reads as {} so
// validation names every required field. It writes the 400 response itself
// and reports false when the body is not a JSON object.
func (h *UserHandler) bindPayload(c *gin.Context) (user.Payload, bool) {
	var payload user.Payload
	err := c.ShouldBindJSON(&payload)
	if errors.Is(err, io.EOF) {
		return user.Payload{}, true
	}
	if err != nil || payload == nil {
		logger.WithContext(c.Request.Context(), h.log).Warn("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Error: []pkgerrors.Violation{bodyViolation}})
		return nil, false
	}
	return payload, true
}

// handleError converts usecase errors to appropriate HTTP responses. The
// status comes from the error's HTTPStatus, 500 when it has none.
func (h *UserHandler) handleError(c *gin.Context, err error) {
	log := logger.WithContext(c.Request.Context(), h.log)

	status := http.StatusInternalServerError
	var statuser pkgerrors.HTTPStatuser
	if errors.As(err, &statuser) {
		status = statuser.HTTPStatus()
	}

	var validationErr *pkgerrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(status, ValidationErrorResponse{Error: validationErr.Violations})
	case status == http.StatusNotFound:
		c.JSON(status, gin.H{"user": nil})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
		c.JSON(status, ErrorResponse{
			Error:   errorCode(status),
			Message: internalMessage(err),
		})
	}
}

// errorCode is the snake_case status text, e.g. "internal_error" for 500.
func errorCode(status int) string {
	if status == http.StatusInternalServerError {
		return "internal_error"
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}

// internalMessage exposes the top-level message of an InternalError but never
// the wrapped cause.
func internalMessage(err error) string {
	var internalErr *pkgerrors.InternalError
	if errors.As(err, &internalErr) && internalErr.Message != "" {
		return internalErr.Message
	}
	return "An internal error occurred"
}
