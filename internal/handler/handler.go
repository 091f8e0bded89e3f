package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/logging"
	"rollcall/internal/model"
	"rollcall/internal/observability"
	"rollcall/internal/roster"
)

// Registrar creates teacher accounts.
type Registrar interface {
	CreateUser(ctx context.Context, username, password string) (model.Teacher, error)
}

// Handler serves the attendance API.
type Handler struct {
	accounts Registrar
	tokens   auth.TokenService
	roster   *roster.Service
	ledger   *attendance.Ledger
	log      *zap.Logger
}

// New creates a Handler. A nil logger discards output.
func New(accounts Registrar, tokens auth.TokenService, rs *roster.Service, ledger *attendance.Ledger, log *zap.Logger) *Handler {
	return &Handler{accounts: accounts, tokens: tokens, roster: rs, ledger: ledger, log: logging.OrNop(log)}
}

// Routes mounts the API on r. The refresh route exists only for token
// services that can refresh.
func (h *Handler) Routes(r gin.IRouter) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	if _, ok := h.tokens.(auth.Refresher); ok {
		r.POST("/token/refresh", h.RefreshToken)
	}

	authed := r.Group("/", auth.Guard(h.tokens, h.log))
	authed.POST("/logout", h.Logout)

	authed.POST("/students", h.AddStudent)
	authed.GET("/students", h.ListStudents)
	authed.PUT("/students/:roll_number", h.UpdateStudent)
	authed.DELETE("/students/:roll_number", h.DeleteStudent)

	authed.POST("/attendance/:roll_number", h.MarkAttendance)
	authed.PUT("/attendance/:roll_number", h.UpdateAttendance)
	authed.GET("/attendance/date/:date", h.AttendanceByDate)
	authed.GET("/attendance/history/:roll_number", h.AttendanceHistory)
	authed.GET("/attendance/percentage/:roll_number", h.AttendancePercentage)
}

// owner returns the authenticated teacher's id. Guard has already run.
func (h *Handler) owner(c *gin.Context) (uuid.UUID, bool) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return uuid.Nil, false
	}
	return p.ID, true
}

// writeError translates service errors into status codes and JSON bodies.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		nf  *apperr.NotFoundError
		ce  *apperr.ConflictError
		bad *apperr.InputError
	)
	switch {
	case errors.As(err, &bad):
		c.JSON(http.StatusBadRequest, errorResponse{Error: bad.Msg})
	case errors.Is(err, apperr.ErrInput):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, apperr.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid credentials"})
	case errors.Is(err, apperr.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, errorResponse{Error: nf.Error()})
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, errorResponse{Error: ce.Reason})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: "Conflict"})
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err))
		observability.CaptureErr(err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}
