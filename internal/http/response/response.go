package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursework-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	// Notice is a short UI label for model failures.
	Notice     string `json:"notice,omitempty"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, envelope(c, code, err))
}

// Abort is RespondError for middleware: later handlers do not run.
func Abort(c *gin.Context, status int, code string, err error) {
	c.AbortWithStatusJSON(status, envelope(c, code, err))
}

// RespondAPIError answers with the status and code carried by an *apierr.Error,
// falling back to 500.
func RespondAPIError(c *gin.Context, err error) {
	if ae, ok := apierr.As(err); ok {
		env := envelope(c, ae.Code, ae.Err)
		env.Error.Notice = ae.Notice
		env.Error.RetryAfter = int(ae.RetryAfter.Seconds())
		c.JSON(ae.Status, env)
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal error"))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func envelope(c *gin.Context, code string, err error) ErrorEnvelope {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	return ErrorEnvelope{Error: APIError{Message: msg, Code: code}}
}
