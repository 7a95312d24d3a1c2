// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var qty *shared.QuantityError
	switch {
	case errors.As(err, &qty):
		WriteProblem(w, ProblemDetail{
			Type:      "about:blank#" + kindSlug(qty.Kind),
			Title:     "Insufficient Quantity",
			Status:    http.StatusUnprocessableEntity,
			Detail:    err.Error(),
			Subject:   qty.Subject,
			Available: qty.Available.String(),
			Requested: qty.Requested.String(),
		})
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case db.IsRetryable(err):
		Problem(w, http.StatusConflict, "Conflict", "concurrent update, retry the request")
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		if logger != nil {
			logger.Error("unhandled error", slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func kindSlug(kind error) string {
	if errors.Is(kind, shared.ErrInsufficientMaterial) {
		return "insufficient-material"
	}
	return "insufficient-stock"
}
