package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/apps/cli/cmd/clienv"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// Command groups first-run helpers: schema creation and the initial super admin.
func Command() *cobra.Command {
	defaults := clienv.MustLoad()

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap the database and platform operators",
	}

	cmd.AddCommand(schemaCommand(defaults))
	cmd.AddCommand(superAdminCommand(defaults))
	return cmd
}

func schemaCommand(defaults clienv.Env) *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "schema",
		Short: "Apply the embedded DDL (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, _, closeFn, err := clienv.OpenStore(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := persistence.BootstrapSchema(ctx, pool); err != nil {
				return fmt.Errorf("bootstrap schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", defaults.DatabaseURL, "PostgreSQL connection string")
	return c
}

func superAdminCommand(defaults clienv.Env) *cobra.Command {
	var (
		databaseURL string
		cost        int
		input       SuperAdminInput
	)

	c := &cobra.Command{
		Use:   "super-admin",
		Short: "Create a platform super admin if the email is not taken",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, store, closeFn, err := clienv.OpenStore(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer closeFn()

			hasher, err := platformauth.NewBcryptVerifier(cost)
			if err != nil {
				return err
			}

			user, created, err := EnsureSuperAdmin(ctx, store, hasher, audit.NewRecorder(store, zap.NewNop()), input)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Super admin created: %s (%s)\n", user.Email, user.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Super admin already exists: %s (%s)\n", user.Email, user.ID)
			}
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", defaults.DatabaseURL, "PostgreSQL connection string")
	c.Flags().IntVar(&cost, "bcrypt-cost", defaults.BcryptCost, "bcrypt cost for the stored password")
	c.Flags().StringVar(&input.Email, "email", "", "super admin email")
	c.Flags().StringVar(&input.Password, "password", "", "super admin password (min 8 characters)")
	c.Flags().StringVar(&input.FullName, "full-name", "", "super admin full name")

	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	_ = c.MarkFlagRequired("full-name")

	return c
}

// SuperAdminInput is the identity to provision.
type SuperAdminInput struct {
	Email    string
	Password string
	FullName string
}

// Hasher produces a password verifier.
type Hasher interface {
	Hash(secret string) (string, error)
}

// AuditWriter appends audit entries inside a transaction.
type AuditWriter interface {
	RecordTx(ctx context.Context, q persistence.AuditQueries, entry audit.Entry) error
}

// EnsureSuperAdmin is a check-or-create on the global namespace. An existing
// account with the same email is returned untouched and created is false.
func EnsureSuperAdmin(ctx context.Context, store persistence.Store, hasher Hasher, writer AuditWriter, input SuperAdminInput) (persistence.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)
	if email == "" || fullName == "" {
		return persistence.User{}, false, errors.New("email and full name are required")
	}
	if len(input.Password) < 8 {
		return persistence.User{}, false, errors.New("password must be at least 8 characters")
	}

	if existing, err := store.Client().FindUserByEmail(ctx, nil, email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.User{}, false, fmt.Errorf("lookup super admin: %w", err)
	}

	hash, err := hasher.Hash(input.Password)
	if err != nil {
		return persistence.User{}, false, err
	}

	var user persistence.User
	err = store.InTx(ctx, func(tx persistence.Tx) error {
		var err error
		user, err = tx.CreateUser(ctx, persistence.CreateUserParams{
			ID:           uuid.New(),
			Email:        email,
			PasswordHash: hash,
			FullName:     fullName,
			Role:         string(authz.RoleSuperAdmin),
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		return writer.RecordTx(ctx, tx, audit.Entry{Action: audit.CreateUser, EntityType: audit.EntityUser, EntityID: user.ID})
	})
	if err != nil {
		return persistence.User{}, false, fmt.Errorf("create super admin: %w", err)
	}
	return user, true, nil
}
