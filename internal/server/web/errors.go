package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

type errorResponse struct {
	Code    int            `json:"code,omitempty"`
	Message string         `json:"message"`
	Info    map[string]any `json:"info,omitempty"`
}

var errBadRequest = errors.New("malformed request body")

// writeError maps err onto a status and a JSON body. Internal failures are
// logged and reported without details.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ae  *auth.Error
		acc *access.Error
	)
	switch {
	case errors.As(err, &ae):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: int(ae.Code), Message: ae.Message, Info: ae.Info})
	case errors.As(err, &acc):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: acc.Error()})
	case errors.Is(err, common.ErrNoRowsUpdated):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "User not found"})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: http.StatusText(http.StatusInternalServerError)})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
