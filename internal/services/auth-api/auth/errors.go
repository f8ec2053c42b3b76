package auth

import (
	"errors"
	"net/http"

	domainauth "github.com/NordCoder/Homeroom/internal/domain/auth"
	"github.com/NordCoder/Homeroom/internal/http/response"
	"github.com/NordCoder/Homeroom/internal/obs"

	"go.uber.org/zap"
)

type httpError struct {
	status  int
	code    string
	message string
	details any
}

func mapErr(err error) httpError {
	var verr *domainauth.ValidationError
	switch {
	case errors.As(err, &verr):
		return httpError{http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid input", verr.Fields}
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return httpError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil}
	case errors.Is(err, domainauth.ErrAccountInactive), errors.Is(err, domainauth.ErrUnauthorized):
		return httpError{http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized", nil}
	case errors.Is(err, domainauth.ErrTokenInvalid):
		return httpError{http.StatusUnauthorized, "TOKEN_INVALID", "invalid or expired token", nil}
	case errors.Is(err, domainauth.ErrMissingToken):
		return httpError{http.StatusUnauthorized, "MISSING_TOKEN", "missing bearer token", nil}
	case errors.Is(err, domainauth.ErrInvalidToken):
		return httpError{http.StatusBadRequest, "INVALID_TOKEN", "invalid or expired token", nil}
	default:
		return httpError{http.StatusInternalServerError, "INTERNAL", "internal error", nil}
	}
}

func writeErr(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	he := mapErr(err)
	if he.status >= http.StatusInternalServerError {
		obs.WithTrace(r.Context(), log).Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
	}
	response.Error(w, he.status, he.code, he.message, he.details)
}

func validationErr(field, msg string) error {
	v := domainauth.NewValidationError()
	v.Add(field, msg)
	return v
}
