package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/http/response"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/agents"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/chat"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/ingestion"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/modes"
	"github.com/yungbote/coursework-backend/internal/platform/apierr"
	"github.com/yungbote/coursework-backend/internal/platform/gcp"
	"github.com/yungbote/coursework-backend/internal/platform/llmerr"
)

// statusClientClosed is nginx's convention for a request the client abandoned.
const statusClientClosed = 499

// toAPIError maps service errors to an HTTP status and code.
func toAPIError(err error) *apierr.Error {
	if ae, ok := apierr.As(err); ok {
		return ae
	}
	var (
		ge       *modes.GenerationError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return apierr.New(statusClientClosed, "client_closed", err)
	case errors.Is(err, types.ErrInvalidArgument),
		errors.Is(err, modes.ErrQuizCountRequired),
		errors.Is(err, modes.ErrUnknownMode),
		errors.Is(err, chat.ErrEmptyQuestion):
		return apierr.New(http.StatusBadRequest, "invalid_request", err)
	case errors.As(err, &tooLarge), errors.Is(err, gcp.ErrObjectTooLarge):
		return apierr.New(http.StatusRequestEntityTooLarge, "material_too_large", err)
	case errors.Is(err, ingestion.ErrUploadsDisabled):
		return apierr.New(http.StatusServiceUnavailable, "uploads_disabled", err)
	case errors.Is(err, modes.ErrContentTooShort):
		return apierr.New(http.StatusUnprocessableEntity, "content_too_short", err)
	case errors.Is(err, types.ErrVersionConflict):
		return apierr.New(http.StatusConflict, "version_conflict", err)
	case errors.As(err, &ge) && !isModelFailure(ge.Err):
		return apierr.New(http.StatusBadGateway, "generation_failed", err)
	case errors.Is(err, agents.ErrMalformedValidation):
		return apierr.New(http.StatusBadGateway, "validation_failed", err)
	}

	c := llmerr.Classify(err)
	out := &apierr.Error{Err: errors.New(c.UserMessage()), Notice: c.Notice(), RetryAfter: c.RetryAfter}
	switch c.Kind {
	case llmerr.KindRateLimit:
		out.Status, out.Code = http.StatusTooManyRequests, "rate_limited"
	case llmerr.KindAuth:
		out.Status, out.Code = http.StatusUnauthorized, "invalid_credential"
	case llmerr.KindContentNotExtracted:
		out.Status, out.Code = http.StatusConflict, "content_not_extracted"
	case llmerr.KindNotFound:
		out.Status, out.Code = http.StatusNotFound, "not_found"
	case llmerr.KindNetwork:
		out.Status, out.Code = http.StatusBadGateway, "upstream_unavailable"
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
	return out
}

// isModelFailure reports whether a generation error came from the provider
// rather than from the shape of its reply.
func isModelFailure(err error) bool {
	if err == nil {
		return false
	}
	return llmerr.Classify(err).Kind != llmerr.KindGeneric
}

func respondErr(c *gin.Context, err error) {
	ae := toAPIError(err)
	if ae.Status >= http.StatusInternalServerError && ae.Code == "internal" {
		// Do not leak internals; the request log carries the cause.
		_ = c.Error(err)
		response.RespondError(c, ae.Status, ae.Code, errors.New("internal error"))
		return
	}
	response.RespondAPIError(c, ae)
}
