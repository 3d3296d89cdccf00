package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/internal/user"
	userPostgres "github.com/frahmantamala/ai-helper/internal/user/postgres"
	"github.com/frahmantamala/ai-helper/pkg/logger"
)

var (
	clearData    bool
	seedUsername string
	seedEmail    string
	seedPassword string
	seedName     string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the initial administrator",
	Long:  `Create the first ADMIN account so the user administration API can be used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		lg := logger.Configure(os.Stderr, cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		db, err := initDB(ctx, cfg.Database, lg)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db, cfg.Environment)
		if err != nil {
			return fmt.Errorf("failed to init gorm: %w", err)
		}

		deps := buildServices(cfg, lg)
		wireUserStore(deps, userPostgres.NewUserRepository(gormDB))

		password := seedPassword
		if password == "" {
			password, err = promptPassword()
			if err != nil {
				return err
			}
		}

		return seedAdmin(ctx, deps.UserStore, deps.Users, user.CreateUserDTO{
			Username: seedUsername,
			Email:    seedEmail,
			Password: password,
			Name:     seedName,
			Role:     internal.RoleAdmin,
			Status:   internal.StatusActive,
		})
	},
}

type seedStore interface {
	DeleteAll(ctx context.Context) (int64, error)
}

type seedUsers interface {
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, dto user.CreateUserDTO) (*user.User, error)
}

func seedAdmin(ctx context.Context, store seedStore, users seedUsers, dto user.CreateUserDTO) error {
	if clearData {
		removed, err := store.DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear users: %w", err)
		}
		fmt.Printf("Removed %d existing users\n", removed)
	}

	available, err := users.UsernameAvailable(ctx, dto.Username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if !available {
		fmt.Println("admin user already exists:", dto.Username)
		return nil
	}

	created, err := users.Create(ctx, dto)
	if err != nil {
		var appErr *internal.AppError
		if errors.As(err, &appErr) {
			return fmt.Errorf("failed to create admin user: %s", appErr.Message)
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	fmt.Printf("Seeded admin user: %s (id %d)\n", created.Username, created.ID)
	return nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Admin password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Remove all users before seeding")
	seedCmd.Flags().StringVar(&seedUsername, "username", "admin", "administrator username")
	seedCmd.Flags().StringVar(&seedEmail, "email", "admin@example.com", "administrator email")
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "administrator password (prompted when empty)")
	seedCmd.Flags().StringVar(&seedName, "name", "Administrator", "administrator display name")
}
