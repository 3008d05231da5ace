package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type userContextResponse struct {
	*access.UserContext
	AuthError *auth.Error `json:"authError,omitempty"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *HTTPServer) callerOf(r *http.Request) *access.UserContext {
	if uc, ok := access.FromContext(r.Context()); ok {
		return uc
	}
	return access.Nobody()
}

// respond writes uc with its avatar resolved.
func (s *HTTPServer) respond(w http.ResponseWriter, r *http.Request, uc *access.UserContext) {
	out := *uc
	if s.avatars != nil && out.User.Avatar != "" {
		url, err := s.avatars.Resolve(r.Context(), out.User.Avatar)
		if err != nil {
			s.logger.Warn(r.Context(), "avatar not resolved", "login", out.User.Login, "error", err)
		} else {
			out.User.Avatar = url
		}
	}

	resp := userContextResponse{UserContext: &out}
	if ae, ok := out.AuthError.(*auth.Error); ok {
		resp.AuthError = ae
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.auth.Authenticate(r.Context(), access.AuthReader(), auth.Credentials{Login: req.Login, Password: req.Password})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setTokenCookie(w, res.Session)
	w.Header().Set(common.AccessTokenHeaderName, res.Session.AccessToken)
	s.respond(w, r, access.FromSession(res.Session))
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	s.clearTokenCookie(w)
	s.respond(w, r, access.Nobody())
}

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.callerOf(r))
}

func (s *HTTPServer) changePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	caller := s.callerOf(r)
	if caller.User.ID == common.NobodyUserID {
		s.writeError(w, r, &access.Error{Op: "changePassword", Message: "changePassword requires an authenticated user"})
		return
	}

	login := req.Login
	if login == "" {
		login = caller.User.Login
	}

	if err := s.auth.ChangePassword(r.Context(), caller, login, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
