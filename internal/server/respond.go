package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/desertthunder/mindx/internal/shared"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, errorBody{Error: message, Detail: detail})
}

// StatusFor maps an error to its HTTP status code by sentinel.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the client-facing text for err. Internal errors keep the underlying message.
func publicMessage(err error) string {
	switch StatusFor(err) {
	case http.StatusBadRequest:
		msg := err.Error()
		if i := strings.LastIndex(msg, shared.ErrValidation.Error()+": "); i >= 0 {
			return msg[i+len(shared.ErrValidation.Error())+2:]
		}
		return msg
	case http.StatusUnauthorized:
		return "Not authenticated"
	case http.StatusForbidden:
		return "Forbidden: admin only"
	default:
		return err.Error()
	}
}

// respondError writes err with the status from [StatusFor].
func respondError(w http.ResponseWriter, err error) {
	writeError(w, StatusFor(err), publicMessage(err), "")
}
