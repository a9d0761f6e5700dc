package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/catalog"
)

// Version is reported by "wahctl version". Release builds set it with
// -ldflags "-X github.com/hupe1980/wah/internal/cli.Version=...".
var Version = "dev"

// app is the state shared by the commands of one invocation.
type app struct {
	cfg    Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *wah.Logger
}

// NewRootCommand returns the wahctl command tree.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		cfg:    DefaultConfig(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	rc := &cobra.Command{
		Use:   "wahctl",
		Short: "wahctl manages catalogs of WAH compressed bitmaps.",
		Long: `wahctl imports, exports, inspects and queries named bitmaps stored
in a versioned catalog on a local directory, S3 or MinIO.

Queries combine bitmaps with ! (not), & (and), - (and-not) and | (or),
binding in that order, for example: "active & (paid | trial) - banned".
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := setAllConfig(viper.New(), cmd.Flags()); err != nil {
				return err
			}

			logger, err := a.cfg.logger(a.stderr)
			if err != nil {
				return err
			}

			a.logger = logger

			return nil
		},
	}

	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")
	a.cfg.registerFlags(rc.PersistentFlags())

	rc.AddCommand(newImportCommand(a))
	rc.AddCommand(newExportCommand(a))
	rc.AddCommand(newListCommand(a))
	rc.AddCommand(newInspectCommand(a))
	rc.AddCommand(newQueryCommand(a))
	rc.AddCommand(newRemoveCommand(a))
	rc.AddCommand(newVacuumCommand(a))
	rc.AddCommand(newConfigCommand(a))
	rc.AddCommand(newVersionCommand(a))

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)

	return rc
}

// withCatalog opens the configured catalog, runs fn and closes it.
func (a *app) withCatalog(ctx context.Context, fn func(*catalog.Catalog) error) error {
	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}

	opts, err := a.cfg.catalogOptions(a.logger)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(ctx, store, opts...)
	if err != nil {
		return err
	}

	defer cat.Close()

	return fn(cat)
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wahctl version.",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintf(a.stdout, "wahctl %s\n", Version)
			return err
		},
	}
}
