package common

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// marshalFailureBody is written when a payload cannot be encoded.
var marshalFailureBody = []byte(`{"error":"Failed to marshal JSON response"}`)

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithStatusError derives the status from err via HTTPStatusFromError.
// Server-side failures get the generic status text instead of err's message.
func RespondWithStatusError(w http.ResponseWriter, err error) {
	code := HTTPStatusFromError(err)
	message := err.Error()
	if code >= http.StatusInternalServerError {
		message = http.StatusText(code)
	}
	RespondWithError(w, code, message)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")

	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(marshalFailureBody)
		return
	}
	w.WriteHeader(code)
	w.Write(response)
}
