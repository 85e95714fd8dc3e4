// Package cli implements bookstorectl, the operator CLI for the bookstore API backends.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hanko-field/bookstore/internal/di"
	"github.com/hanko-field/bookstore/internal/platform/config"
	"github.com/hanko-field/bookstore/internal/platform/secrets"
)

// ValidOutputs lists the accepted -o values.
var ValidOutputs = []string{"table", "json", "yaml"}

// RootOptions holds global flags and the dependency factories shared by subcommands.
type RootOptions struct {
	EnvFile string
	Output  string
	Verbose bool

	loadConfig   func(ctx context.Context, opts *RootOptions) (config.Config, error)
	newContainer func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*di.Container, error)
}

// NewRootCommand creates the bookstorectl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{
		loadConfig:   loadConfig,
		newContainer: newContainer,
	})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookstorectl",
		Short: "Operate the bookstore catalog, cart and checkout backends",
		Long: `bookstorectl reads the same API_* configuration as the API server and
works directly against the configured catalog source, cart store and payment gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidOutput(opts.Output) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid output %q: must be one of %v", opts.Output, ValidOutputs))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file read before the process environment")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "table", "output format (table|json|yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log backend activity to stderr")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))

	return cmd
}

func isValidOutput(format string) bool {
	for _, f := range ValidOutputs {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) logger() *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// withContainer loads configuration, builds the container and closes it after fn returns.
func (o *RootOptions) withContainer(ctx context.Context, fn func(*di.Container) error) error {
	cfg, err := o.loadConfig(ctx, o)
	if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	container, err := o.newContainer(ctx, cfg, o.logger())
	if err != nil {
		return WrapExitError(ExitCommandError, "initialise backends", err)
	}
	defer func() { _ = container.Close(context.Background()) }()
	return fn(container)
}

func loadConfig(ctx context.Context, opts *RootOptions) (config.Config, error) {
	project := strings.TrimSpace(os.Getenv("API_SECRET_PROJECT_ID"))
	if project == "" {
		project = strings.TrimSpace(os.Getenv("API_FIRESTORE_PROJECT_ID"))
	}
	fetcher, err := secrets.NewFetcher(ctx, secrets.WithProject(project), secrets.WithLogger(opts.logger()))
	if err != nil {
		return config.Config{}, err
	}
	defer func() { _ = fetcher.Close() }()
	return config.Load(ctx, config.WithEnvFile(opts.EnvFile), config.WithSecretResolver(fetcher))
}

func newContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*di.Container, error) {
	return di.NewContainer(ctx, cfg, di.WithLogger(logger))
}
