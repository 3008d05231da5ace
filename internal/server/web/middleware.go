package web

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// UserContext resolves the request's access token and stores the caller in
// the request context.
//
// No token gives the nobody context. An expired token is answered with 401
// and its cookie is dropped so the client can log in again; any other
// authentication failure falls back to nobody with the error attached.
func (s *HTTPServer) UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := s.accessToken(r)
		if token == "" {
			next.ServeHTTP(w, r.WithContext(access.WithUserContext(ctx, access.Nobody())))
			return
		}

		res, err := s.auth.Authenticate(ctx, access.AuthReader(), auth.Credentials{AccessToken: token})
		if err != nil {
			code, isAuth := auth.CodeOf(err)
			if isAuth && code != auth.AccessTokenExpired {
				s.logger.Debug(ctx, "falling back to nobody", "token", cryptox.TokenPrefix(token), "code", code.String())
				next.ServeHTTP(w, r.WithContext(access.WithUserContext(ctx, access.Anonymous(token, err))))
				return
			}
			if isAuth {
				s.clearTokenCookie(w)
			}
			s.writeError(w, r, err)
			return
		}

		s.setTokenCookie(w, res.Session)
		if res.Issued {
			w.Header().Set(common.AccessTokenHeaderName, res.Session.AccessToken)
		}
		next.ServeHTTP(w, r.WithContext(access.WithUserContext(ctx, access.FromSession(res.Session))))
	})
}

func (s *HTTPServer) accessToken(r *http.Request) string {
	if token := r.Header.Get(common.AccessTokenHeaderName); token != "" {
		return token
	}
	if c, err := r.Cookie(s.cookieName); err == nil {
		return c.Value
	}
	return ""
}

// setTokenCookie stores the session token in a cookie that expires with it.
func (s *HTTPServer) setTokenCookie(w http.ResponseWriter, session *models.Session) {
	maxAge := int(session.Remaining() / time.Second)
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    session.AccessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
