package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/gymbook/pkg"

	"github.com/spf13/cobra"
)

const minPasswordLength = 6

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password",
		Long: `Print the bcrypt hash of a password, for the static identity backend's
GYMBOOK_DEV_USER_PASSWORD_HASH. Without an argument the password is read
from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if scanner.Scan() {
					password = strings.TrimSpace(scanner.Text())
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}

			if password == "" {
				return errors.New("empty password")
			}
			if len(password) < minPasswordLength {
				return fmt.Errorf("password too short, minimum length is %d", minPasswordLength)
			}

			hash, err := pkg.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
