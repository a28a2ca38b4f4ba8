package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/evmstore/db"
	"github.com/ethpandaops/evmstore/handlers/middleware"
	"github.com/ethpandaops/evmstore/services"
)

var (
	// ErrMalformedInput is returned for requests whose body or parameters cannot be decoded.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnknownMethod is returned for operation names that are not dispatched.
	ErrUnknownMethod = errors.New("unknown method")
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorKind maps an operation error onto the error kind and status code sent to the client.
func errorKind(err error) (string, int) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return "NotFound", http.StatusNotFound
	case errors.Is(err, db.ErrConstraintViolation):
		return "ConstraintViolation", http.StatusConflict
	case errors.Is(err, db.ErrConnection):
		return "ConnectionError", http.StatusServiceUnavailable
	case errors.Is(err, ErrMalformedInput), errors.Is(err, services.ErrIncompleteApply):
		return "MalformedInput", http.StatusBadRequest
	case errors.Is(err, ErrUnknownMethod):
		return "UnknownMethod", http.StatusBadRequest
	case errors.Is(err, middleware.ErrUnauthorized):
		return "Unauthorized", http.StatusUnauthorized
	case errors.Is(err, services.ErrCallRateLimited):
		return "RateLimited", http.StatusTooManyRequests
	default:
		return "InternalError", http.StatusInternalServerError
	}
}

func sendErrorResponse(w http.ResponseWriter, logger logrus.FieldLogger, operation string, err error) {
	kind, code := errorKind(err)
	if code == http.StatusInternalServerError {
		logger.WithError(err).Errorf("error processing %v request", operation)
	} else {
		logger.Debugf("%v request failed: %v", operation, err)
	}
	sendErrorWithCodeResponse(w, logger, operation, &ErrorResponse{
		Error:   kind,
		Message: err.Error(),
	}, code)
}

func sendErrorWithCodeResponse(w http.ResponseWriter, logger logrus.FieldLogger, operation string, response *ErrorResponse, errorcode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errorcode)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		logger.Errorf("error serializing json error for %v operation: %v", operation, err)
	}
}

func sendOKResponse(w http.ResponseWriter, logger logrus.FieldLogger, operation string, response any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		logger.Errorf("error serializing json data for %v operation: %v", operation, err)
	}
}
