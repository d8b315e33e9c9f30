// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
)

// Response literals that are part of the public contract.
const (
	errMissingVideoID = "videoId parameter is missing"
	errInvalidVideoID = "Invalid videoId format or URL"
	errNotAvailable   = "Transcript not available"
	errFetchFailed    = "Transcript fetch failed"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorMsg writes an error response with a fixed message
func writeErrorMsg(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
