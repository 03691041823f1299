package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursework-backend/internal/http/response"
	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
)

// owner reads the caller and the :id path param. It answers the request and
// returns false when either is missing.
func owner(c *gin.Context) (assignmentID, userID uuid.UUID, ok bool) {
	userID = ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return uuid.Nil, uuid.Nil, false
	}
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_assignment_id", err)
		return uuid.Nil, uuid.Nil, false
	}
	return assignmentID, userID, true
}
