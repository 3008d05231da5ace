package auth

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
)

// ChangePassword stores a new salt and hash for login. An empty password is
// refused without touching the store. Existing sessions stay valid.
func (a *Authenticator) ChangePassword(ctx context.Context, caller *access.UserContext, login, password string) error {
	ctx, span := a.tracer.Start(ctx, "auth.ChangePassword")
	defer span.End()

	err := a.changePassword(ctx, caller, login, password)

	outcome := outcomeOf(err)
	a.metrics.passwordChange(outcome)
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	if err != nil && !IsAuthError(err) {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	return err
}

func (a *Authenticator) changePassword(ctx context.Context, caller *access.UserContext, login, password string) error {
	if password == "" {
		return newError(InvalidPassword, "Empty password not allowed", map[string]any{"login": login})
	}

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	if err := a.guard.UpdateUserPassword(ctx, caller, login, salt, a.hasher.Hash(salt, password)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	a.logger.Info(ctx, "password changed", "login", login, "hasher", a.hasher.Name())
	return nil
}
