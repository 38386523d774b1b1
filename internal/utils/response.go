package utils

import (
	"encoding/json"
	"net/http"
)

// MessageResponse is the body of every error and confirmation reply.
type MessageResponse struct {
	Message string      `json:"message"`
	Event   interface{} `json:"event,omitempty"`
	User    interface{} `json:"user,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, MessageResponse{Message: message})
}
