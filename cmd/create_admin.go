package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nguyentranbao-ct/chat-crm/internal/app"
	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-crm/internal/usecase"
)

// adminPasswordEnv is read when neither --password nor --password-stdin is given.
const adminPasswordEnv = "CRM_ADMIN_PASSWORD"

var createAdminOpts struct {
	email         string
	name          string
	password      string
	passwordStdin bool
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create the first admin account",
	Long: "Create the first admin account. Fails when an admin already exists.\n" +
		"The password comes from --password-stdin, --password or " + adminPasswordEnv + ".",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := adminPassword(cmd)
		if err != nil {
			return err
		}

		var userRepo mongodb.UserRepository
		tool := app.Tool(&userRepo)
		if err := tool.Err(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := tool.Start(ctx); err != nil {
			return fmt.Errorf("start: %w", err)
		}
		defer func() { _ = tool.Stop(context.Background()) }()

		user, err := usecase.CreateFirstAdmin(ctx, userRepo, &models.CreateUserRequest{
			Name:     createAdminOpts.name,
			Email:    createAdminOpts.email,
			Password: password,
		})
		if errors.Is(err, usecase.ErrAdminExists) {
			return fmt.Errorf("%w; manage further accounts from the admin panel", err)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "admin created: %s (%s)\n", user.Email, user.ID.Hex())
		return nil
	},
}

func init() {
	f := createAdminCmd.Flags()
	f.StringVar(&createAdminOpts.email, "email", "", "admin email (required)")
	f.StringVar(&createAdminOpts.name, "name", "Administrator", "display name")
	f.StringVar(&createAdminOpts.password, "password", "", "admin password; prefer --password-stdin or "+adminPasswordEnv)
	f.BoolVar(&createAdminOpts.passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	_ = createAdminCmd.MarkFlagRequired("email")
	createAdminCmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
}

func adminPassword(cmd *cobra.Command) (string, error) {
	switch {
	case createAdminOpts.passwordStdin:
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	case createAdminOpts.password != "":
		return createAdminOpts.password, nil
	case os.Getenv(adminPasswordEnv) != "":
		return os.Getenv(adminPasswordEnv), nil
	}
	return "", fmt.Errorf("no password given: use --password-stdin, --password or %s", adminPasswordEnv)
}
