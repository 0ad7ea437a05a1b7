package studentapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/classdeskhq/classdesk/log"
	"github.com/classdeskhq/classdesk/student"
)

type (
	Handler struct {
		Service service
	}

	service interface {
		CreateStudent(ctx context.Context, classID, username string) (*student.Student, error)
		ListStudents(ctx context.Context, classID string) ([]student.Student, error)
		DeleteStudent(ctx context.Context, classID, userID string) error
		ResetPassword(ctx context.Context, classID, userID string) (*student.Student, error)
	}

	createRequest struct {
		Username string `json:"username"`
	}
)

// Create provisions a new student account in the class. The generated
// password is present in this response only.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	// a missing or malformed body is handled as an absent username so the
	// caller always gets the same message for it
	_ = c.ShouldBindJSON(&req)

	created, err := h.Service.CreateStudent(c.Request.Context(), c.Param("classID"), req.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// List returns the accounts of the class, passwords never included.
func (h *Handler) List(c *gin.Context) {
	students, err := h.Service.ListStudents(c.Request.Context(), c.Param("classID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) Delete(c *gin.Context) {
	err := h.Service.DeleteStudent(c.Request.Context(), c.Param("classID"), c.Param("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResetPassword replaces the account password with a freshly generated one
// and returns it. The previous password stops working immediately.
func (h *Handler) ResetPassword(c *gin.Context) {
	updated, err := h.Service.ResetPassword(c.Request.Context(), c.Param("classID"), c.Param("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// writeError maps the orchestration fault taxonomy to HTTP status and body.
// Ownership mismatches arrive here as not-found, indistinguishable from a
// nonexistent id.
func writeError(c *gin.Context, err error) {
	var serr *student.Error
	if !errors.As(err, &serr) {
		log.Errorf("unexpected error handling %v %v, err=%v", c.Request.Method, c.FullPath(), err)
		sentry.CaptureException(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	switch serr.Kind {
	case student.KindMissingField, student.KindInvalidFormat:
		c.JSON(http.StatusBadRequest, gin.H{"error": serr.Message})
	case student.KindQuotaExceeded, student.KindDuplicate:
		c.JSON(http.StatusConflict, gin.H{"error": serr.Message})
	case student.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"statusCode": http.StatusNotFound, "error": "Not Found"})
	default:
		log.Errorf("provider failure handling %v %v, err=%v", c.Request.Method, c.FullPath(), serr)
		sentry.CaptureException(serr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": serr.Message})
	}
}
