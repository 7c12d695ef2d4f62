// Package response writes JSON bodies for the operator API.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// JSON writes data with status. A nil data writes only the status line.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).WithField("status", status).Error("Failed to encode response")
	}
}

// Error writes an ErrorBody with message. err, when set, becomes the details.
//
//	response.Error(w, http.StatusNotFound, apperrors.ErrRunNotFound.Error(), nil)
//	response.Error(w, http.StatusBadRequest, "invalid request", err)
func Error(w http.ResponseWriter, status int, message string, err error) {
	body := ErrorBody{Error: message}
	if err != nil {
		body.Details = err.Error()
	}
	JSON(w, status, body)
}
