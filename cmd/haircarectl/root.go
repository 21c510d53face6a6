package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haircarepro/haircarepro/internal/bootstrap"
	"github.com/haircarepro/haircarepro/internal/config"
	"github.com/haircarepro/haircarepro/internal/repository"
)

// cli holds state shared by every subcommand. Dependencies are created
// lazily so that --help works without a database.
type cli struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	in     io.Reader

	loadConfig     func() (*config.Config, error)
	openRepository func(ctx context.Context, cfg *config.Config) (*repository.Repository, error)
	readPassword   func(prompt string) (string, error)
}

func newCLI() *cli {
	c := &cli{
		out:            os.Stdout,
		in:             os.Stdin,
		loadConfig:     config.Load,
		openRepository: bootstrap.OpenRepository,
	}
	c.readPassword = c.promptPassword
	return c
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "haircarectl",
		Short: "HairCare Pro operator tool",
		Long: `haircarectl runs maintenance tasks against the HairCare Pro database:
applying migrations, running the reminder pass on demand, creating
accounts and reporting on stored care plans.

Configuration is read from the same environment variables (and optional
.env file) as the server.`,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	root.SetOut(c.out)
	root.SetIn(c.in)

	root.AddCommand(
		newMigrateCmd(c),
		newRemindCmd(c),
		newUserCmd(c),
		newPlansCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	// Logs go to stderr so command output stays scriptable.
	c.logger = bootstrap.NewLogger(cfg, os.Stderr)
	return nil
}

func (c *cli) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
