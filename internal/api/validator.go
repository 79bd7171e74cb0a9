package api

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	apperrors "dramadl/internal/errors"
	"dramadl/internal/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

func sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

func sendJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// sendAppError maps domain errors onto HTTP status codes.
func sendAppError(w http.ResponseWriter, err error) {
	var notFound *apperrors.NotFoundError
	if stderrors.As(err, &notFound) {
		sendError(w, err.Error(), http.StatusNotFound)
		return
	}

	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeInvalidTransition, apperrors.CodeInvalidOperation:
			sendError(w, err.Error(), http.StatusConflict)
		case apperrors.CodeValidationFailed:
			sendError(w, err.Error(), http.StatusBadRequest)
		default:
			sendError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	sendError(w, err.Error(), http.StatusConflict)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	// Keep the body around so a validation failure can be logged with it
	bodyBytes, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sendError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		errMsg := "validation failed: "
		for _, err := range err.(validator.ValidationErrors) {
			errMsg += fmt.Sprintf("[%s: %s] ", err.Field(), err.Tag())
		}

		logger.L.Warn("API validation failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("error", errMsg),
			zap.String("body", string(bodyBytes)),
		)

		sendError(w, errMsg, http.StatusBadRequest)
		return false
	}

	return true
}
