// Package admin implements the gophauth-admin command line: schema
// migrations, user creation, password resets and database identification.
// Every command runs with the admin user context.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword and isTerminal are test seams for golang.org/x/term.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

type rootOptions struct {
	configPath string
	driver     string
	dsn        string
}

type session struct {
	config *config.Config
	guard  *access.Guard
	close  func() error
}

func (o *rootOptions) open(ctx context.Context) (*session, error) {
	cfg, err := config.FromFile(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.driver != "" {
		cfg.DatabaseDriver = o.driver
	}
	if o.dsn != "" {
		cfg.DatabaseDSN = o.dsn
	}

	s, closeDB, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)
	return &session{config: cfg, guard: access.NewGuard(s, logger), close: closeDB}, nil
}

// NewRootCmd returns the gophauth-admin command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "gophauth-admin",
		Short:         "Administer a gophauth credential store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "server JSON config file")
	cmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "override the database driver (pgx, sqlite, memory)")
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "override the database DSN")

	cmd.AddCommand(
		migrateCmd(opts),
		userAddCmd(opts),
		passwdCmd(opts),
		dbidCmd(opts),
	)
	return cmd
}

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", s.config.DatabaseDriver)
			return nil
		},
	}
}

func dbidCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dbid",
		Short: "Print the database identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			id, err := s.guard.DatabaseID(cmd.Context(), access.Admin())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

// promptPassword reads a password without echo from a terminal, or a single
// line from in otherwise.
func promptPassword(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		fmt.Fprint(out, "New password: ")
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
