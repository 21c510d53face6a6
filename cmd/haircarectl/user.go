package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/service"
)

func newUserCmd(c *cli) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var username, email string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long: `Creates an account the same way the registration form does.
The password is read from the terminal without echo, or from the first
line of stdin when it is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := c.readPassword("Password: ")
			if err != nil {
				return err
			}

			repo, err := c.openRepository(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			// No sessions are opened from the CLI.
			accounts := service.NewAccountService(repo, nil, time.Hour, c.logger, metrics.NewNoop())
			user, err := accounts.Register(cmd.Context(), service.RegisterInput{
				Username: username,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			c.printf("created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&username, "username", "", "account username")
	createCmd.Flags().StringVar(&email, "email", "", "account email address")
	_ = createCmd.MarkFlagRequired("username")
	_ = createCmd.MarkFlagRequired("email")

	userCmd.AddCommand(createCmd)
	return userCmd
}

// promptPassword reads a password with confirmation on a terminal, or a
// single line from piped input.
func (c *cli) promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if c.in != os.Stdin || !term.IsTerminal(fd) {
		line, err := bufio.NewReader(c.in).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	c.printf("%s", prompt)
	password, err := term.ReadPassword(fd)
	c.printf("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	c.printf("Repeat password: ")
	confirm, err := term.ReadPassword(fd)
	c.printf("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(password) != string(confirm) {
		return "", errors.New("passwords do not match")
	}
	return string(password), nil
}
