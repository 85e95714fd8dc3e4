package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hanko-field/bookstore/internal/repositories/records"
	"github.com/hanko-field/bookstore/internal/repositories/sqlstore"
)

type migrateOptions struct {
	driver string
	dsn    string
	seed   string
}

// MigrateResult is printed after a successful migrate run.
type MigrateResult struct {
	Driver string `json:"driver" yaml:"driver"`
	Seeded int    `json:"seeded" yaml:"seeded"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL catalog migrations and optionally seed products",
		Long: `Apply the embedded schema migrations to the SQL catalog database.

With --seed, products from a JSON or YAML catalog file are upserted afterwards.
--driver and --dsn default to API_SQL_DRIVER and API_SQL_DSN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), rootOpts, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.driver, "driver", "", "database driver (sqlite|postgres)")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "database connection string")
	cmd.Flags().StringVar(&opts.seed, "seed", "", "catalog file to upsert after migrating")
	return cmd
}

func runMigrate(ctx context.Context, rootOpts *RootOptions, opts *migrateOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	driver, dsn := strings.TrimSpace(opts.driver), strings.TrimSpace(opts.dsn)
	if driver == "" || dsn == "" {
		cfg, err := rootOpts.loadConfig(ctx, rootOpts)
		if err != nil {
			return WrapExitError(ExitCommandError, "load configuration", err)
		}
		if driver == "" {
			driver = cfg.SQL.Driver
		}
		if dsn == "" {
			dsn = cfg.SQL.DSN
		}
	}

	db, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer func() { _ = db.Close() }()

	if err := sqlstore.Migrate(db, driver); err != nil {
		return WrapExitError(ExitFailure, "apply migrations", err)
	}

	result := MigrateResult{Driver: driver}
	if opts.seed != "" {
		file, err := os.Open(opts.seed)
		if err != nil {
			return WrapExitError(ExitCommandError, "open seed file", err)
		}
		defer file.Close()

		products, err := records.DecodeCatalog(file, records.FormatFromPath(opts.seed))
		if err != nil {
			return WrapExitError(ExitCommandError, "decode seed file", err)
		}
		repo, err := sqlstore.NewCatalogRepository(db)
		if err != nil {
			return WrapExitError(ExitFailure, "open catalog", err)
		}
		if err := repo.UpsertProducts(ctx, products); err != nil {
			return WrapExitError(ExitFailure, "seed catalog", err)
		}
		result.Seeded = len(products)
	}

	return render(out, rootOpts.Output, result, func(w io.Writer) {
		fmt.Fprintf(w, "migrations applied (%s)\n", result.Driver)
		if opts.seed != "" {
			fmt.Fprintf(w, "seeded %d products from %s\n", result.Seeded, opts.seed)
		}
	})
}
