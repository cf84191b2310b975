package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ResumeSection-backend/internal/platform/auth"
)

// テストで差し替える
var readPasswordFunc = term.ReadPassword

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var (
	userName string
	userPass string
	userRole string
)

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, conn, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		if userName == "" {
			if userName, err = prompt(cmd, "Username: "); err != nil {
				return err
			}
		}
		if userPass == "" {
			if userPass, err = promptPassword(cmd); err != nil {
				return err
			}
		}

		svc := auth.NewService(conn, auth.Options{Secret: []byte(cfg.Auth.JWTSecret), TTL: cfg.Auth.TokenTTL, Logger: log})
		u, err := svc.Create(cmd.Context(), auth.CreateUserRequest{Username: userName, Password: userPass, Role: auth.Role(userRole)})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (id=%d, role=%s)\n", u.Username, u.ID, u.Role)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVarP(&userName, "username", "u", "", "account name")
	userAddCmd.Flags().StringVarP(&userPass, "password", "p", "", "password (prompted when empty)")
	userAddCmd.Flags().StringVarP(&userRole, "role", "r", string(auth.RoleSection), "admin | section | viewer")
	userCmd.AddCommand(userAddCmd)
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password is required (use --password when stdin is not a terminal)")
	}
	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	first, err := readPasswordFunc(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", err
	}
	fmt.Fprint(cmd.OutOrStdout(), "Confirm password: ")
	second, err := readPasswordFunc(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
