// Package auth authenticates callers by login/password or by access token,
// issues and refreshes sessions, and changes passwords.
//
// Every store access goes through the access guard with the caller's
// UserContext. Authentication failures are returned as *Error; anything else
// is a store or crypto failure, wrapped and returned as is.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrijs2005/gophauth/internal/server/auth"

// Guard is the part of *access.Guard the authenticator needs.
type Guard interface {
	LoadUserByLogin(ctx context.Context, caller *access.UserContext, login string) (*models.User, error)
	LoadSessionByAccessToken(ctx context.Context, caller *access.UserContext, accessToken string) (*models.Session, error)
	InsertSession(ctx context.Context, caller *access.UserContext, login, accessToken string, lifetime time.Duration) (*models.Session, error)
	UpdateUserPassword(ctx context.Context, caller *access.UserContext, login, salt, hashedPassword string) error
}

// Result is a successful authentication. Issued is true when Session
// carries a token minted by this call, by password login or by refresh.
type Result struct {
	Session *models.Session
	Issued  bool
}

type Authenticator struct {
	guard    Guard
	policy   Policy
	hasher   cryptox.Hasher
	newToken func() (string, error)
	logger   logging.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

type Option func(*Authenticator)

func WithLogger(l logging.Logger) Option {
	return func(a *Authenticator) { a.logger = l.With("module", "auth") }
}

// WithHasher sets the hasher used for new passwords. Verification accepts
// every supported format regardless.
func WithHasher(h cryptox.Hasher) Option {
	return func(a *Authenticator) { a.hasher = h }
}

func WithMetrics(m *Metrics) Option {
	return func(a *Authenticator) { a.metrics = m }
}

// WithTokenSource replaces cryptox.GenerateAccessToken.
func WithTokenSource(fn func() (string, error)) Option {
	return func(a *Authenticator) { a.newToken = fn }
}

// NewAuthenticator returns an Authenticator applying policy. It fails when
// the policy is not usable.
func NewAuthenticator(g Guard, policy Policy, opts ...Option) (*Authenticator, error) {
	if err := policy.validate(); err != nil {
		return nil, fmt.Errorf("%w: lifetime %s, refresh window %s", err, policy.TokenLifetime, policy.RefreshWindow)
	}

	a := &Authenticator{
		guard:    g,
		policy:   policy,
		hasher:   cryptox.SHA256Hasher{},
		newToken: cryptox.GenerateAccessToken,
		logger:   logging.Nop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Policy returns the token policy in use.
func (a *Authenticator) Policy() Policy { return a.policy }

// Authenticate resolves cr on behalf of caller.
//
// With a token, the stored session is checked (owner may log in, not
// expired) and returned unchanged while more than the refresh window is
// left; otherwise a new session with a full lifetime is created and the old
// one is left to expire. With a login, the password is verified and a new
// session is created.
func (a *Authenticator) Authenticate(ctx context.Context, caller *access.UserContext, cr Credentials) (*Result, error) {
	method := cr.method()
	ctx, span := a.tracer.Start(ctx, "auth.Authenticate",
		trace.WithAttributes(attribute.String("auth.method", method)))
	defer span.End()

	var (
		res *Result
		err error
	)
	switch method {
	case methodToken:
		res, err = a.authenticateWithAccessToken(ctx, caller, cr.AccessToken)
	case methodPassword:
		res, err = a.authenticateWithPassword(ctx, caller, cr.Login, cr.Password)
	default:
		err = newError(InvalidCredentials, "Invalid credentials", nil)
	}

	outcome := outcomeOf(err)
	a.metrics.authentication(method, outcome)
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	if err != nil && !IsAuthError(err) {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	if res != nil {
		span.SetAttributes(attribute.Bool("auth.issued", res.Issued))
	}
	return res, err
}

func (a *Authenticator) authenticateWithAccessToken(ctx context.Context, caller *access.UserContext, accessToken string) (*Result, error) {
	a.logger.Debug(ctx, "authenticating", "token", cryptox.TokenPrefix(accessToken))

	session, err := a.guard.LoadSessionByAccessToken(ctx, caller, accessToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			a.logger.Debug(ctx, "access token not found", "token", cryptox.TokenPrefix(accessToken))
			return nil, newError(AccessTokenNotFound, "Access token not found", nil)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	info := map[string]any{"login": session.Login}
	if !session.User.CanLogin {
		a.logger.Debug(ctx, "user is not allowed to log in", "login", session.Login)
		return nil, newError(CannotLogin, "User is not allowed to log in", info)
	}
	if session.Expired() {
		a.logger.Debug(ctx, "access token expired", "login", session.Login, "validUntil", session.ValidUntil)
		return nil, newError(AccessTokenExpired, "Access Token expired", info)
	}

	if session.Remaining() > a.policy.RefreshWindow {
		return &Result{Session: session}, nil
	}

	refreshed, err := a.issue(ctx, caller, session.Login, "refresh")
	if err != nil {
		return nil, err
	}
	a.logger.Debug(ctx, "session refreshed", "login", session.Login, "oldSession", session.ID, "session", refreshed.ID)
	return &Result{Session: refreshed, Issued: true}, nil
}

func (a *Authenticator) authenticateWithPassword(ctx context.Context, caller *access.UserContext, login, password string) (*Result, error) {
	info := map[string]any{"login": login}

	user, err := a.guard.LoadUserByLogin(ctx, caller, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, newError(UserNotFound, "User not found", info)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !user.CanLogin {
		a.logger.Debug(ctx, "user is not allowed to log in", "login", login)
		return nil, newError(CannotLogin, "User is not allowed to log in", info)
	}
	if !cryptox.Verify(user.Salt, password, user.HashedPassword) {
		return nil, newError(InvalidPassword, "Invalid password", info)
	}

	session, err := a.issue(ctx, caller, user.Login, "login")
	if err != nil {
		return nil, err
	}
	a.logger.Debug(ctx, "logged in with password", "login", login, "session", session.ID)
	return &Result{Session: session, Issued: true}, nil
}

func (a *Authenticator) issue(ctx context.Context, caller *access.UserContext, login, reason string) (*models.Session, error) {
	token, err := a.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	session, err := a.guard.InsertSession(ctx, caller, login, token, a.policy.TokenLifetime)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	a.metrics.sessionIssued(reason)
	return session, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := CodeOf(err); ok {
		return strings.ToLower(code.String())
	}
	return "error"
}
