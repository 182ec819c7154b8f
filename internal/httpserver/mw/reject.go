package mw

import (
	"encoding/json"
	"net/http"
)

// Rejection codes written by the middlewares. They share the
// {"error","code"} body of the API handlers.
const (
	CodeInvalidPrincipal = "INVALID_PRINCIPAL"
	CodeHostNotAllowed   = "HOST_NOT_ALLOWED"
	CodeIPNotAllowed     = "IP_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
)

func reject(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
