package server

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/rgddl/internal/errs"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error kind and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	code := errs.KindOf(err).String()
	if status == http.StatusRequestEntityTooLarge {
		code = "too_large"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{Code: code, Message: err.Error()},
	})
}
