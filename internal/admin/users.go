package admin

import (
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/spf13/cobra"
)

func userAddCmd(opts *rootOptions) *cobra.Command {
	user := &models.User{}

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a user without a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.guard.AddUser(cmd.Context(), access.Admin(), user); err != nil {
				return fmt.Errorf("add user %q: %w", user.Login, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s created with id %s\n", user.Login, user.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&user.Login, "login", "", "login (required)")
	f.StringVar(&user.Name, "name", "", "display name")
	f.StringVar(&user.Email, "email", "", "email address")
	f.StringVar(&user.Avatar, "avatar", "", "avatar reference, e.g. s3://avatars/alex.png")
	f.BoolVar(&user.CanLogin, "can-login", true, "allow the user to log in")
	f.BoolVar(&user.IsAdmin, "admin", false, "grant admin rights")
	_ = cmd.MarkFlagRequired("login")

	return cmd
}

func passwdCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd LOGIN",
		Short: "Set a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			a, err := server.NewAuthenticator(s.config, s.guard)
			if err != nil {
				return err
			}

			password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if err := a.ChangePassword(cmd.Context(), access.Admin(), args[0], password); err != nil {
				return fmt.Errorf("change password of %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password of %s changed\n", args[0])
			return nil
		},
	}
}
