package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/catalog"
)

func newImportCommand(a *app) *cobra.Command {
	var (
		format   string
		length   uint64
		noCommit bool
	)

	cmd := &cobra.Command{
		Use:   "import NAME [FILE]",
		Short: "Store a bitmap read from FILE or stdin under NAME.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !catalog.ValidName(name) {
				return fmt.Errorf("%w: %q", catalog.ErrInvalidName, name)
			}

			r := a.stdin

			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()

				r = f
			}

			b, err := readBitmap(r, format, length)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			return a.withCatalog(ctx, func(cat *catalog.Catalog) error {
				if err := cat.Put(ctx, name, b); err != nil {
					return err
				}

				if noCommit {
					return nil
				}

				if err := cat.Commit(ctx); err != nil {
					return err
				}

				_, err := fmt.Fprintf(a.stdout, "%s: len=%d count=%d version=%d\n", name, b.Len(), b.Count(), cat.Version())

				return err
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatPositions, "Input format: positions, bits, wah or roaring.")
	cmd.Flags().Uint64Var(&length, "len", 0, "Bitmap length for positions and roaring input; 0 ends after the last set bit.")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "Stage the bitmap without publishing a new version.")

	return cmd
}

// output returns the destination named by path, "" or "-" meaning stdout.
func (a *app) output(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return a.stdout, func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	return f, f.Close, nil
}

func (a *app) emit(b *wah.Bitmap, format, path string) error {
	w, closeFn, err := a.output(path)
	if err != nil {
		return err
	}

	if err := writeBitmap(w, b, format); err != nil {
		_ = closeFn()
		return err
	}

	return closeFn()
}

func newExportCommand(a *app) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write the bitmap stored under NAME.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return a.withCatalog(ctx, func(cat *catalog.Catalog) error {
				b, err := cat.Get(ctx, args[0])
				if err != nil {
					return err
				}

				return a.emit(b, format, out)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatPositions, "Output format: positions, ranges, bits, wah or roaring.")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file; stdout if empty.")

	return cmd
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the bitmaps of the current version.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCatalog(cmd.Context(), func(cat *catalog.Catalog) error {
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "NAME\tLEN\tCOUNT\tBYTES\tCOMPRESSOR\n")

				for _, e := range cat.Entries() {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", e.Name, e.Len, e.Count, e.Size, e.Compressor)
				}

				fmt.Fprintf(tw, "# version %d\n", cat.Version())

				return tw.Flush()
			})
		},
	}
}

func newInspectCommand(a *app) *cobra.Command {
	var content bool

	cmd := &cobra.Command{
		Use:   "inspect NAME",
		Short: "Dump the word layout of a stored bitmap.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return a.withCatalog(ctx, func(cat *catalog.Catalog) error {
				e, err := cat.Stat(args[0])
				if err != nil {
					return err
				}

				b, err := cat.Get(ctx, args[0])
				if err != nil {
					return err
				}

				fmt.Fprintf(a.stdout, "blob: %s (%d bytes, %s)\n", e.Blob, e.Size, e.Compressor)
				fmt.Fprintf(a.stdout, "memory: %d bytes\n", b.SizeBytes())

				return b.Dump(a.stdout, content)
			})
		},
	}

	cmd.Flags().BoolVar(&content, "content", false, "Also print every literal word.")

	return cmd
}

func newQueryCommand(a *app) *cobra.Command {
	var (
		save   string
		format string
		out    string
		count  bool
	)

	cmd := &cobra.Command{
		Use:   "query EXPR",
		Short: "Evaluate a boolean expression over stored bitmaps.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := catalog.ParseExpr(args[0])
			if err != nil {
				return err
			}

			if save != "" && !catalog.ValidName(save) {
				return fmt.Errorf("%w: %q", catalog.ErrInvalidName, save)
			}

			ctx := cmd.Context()

			return a.withCatalog(ctx, func(cat *catalog.Catalog) error {
				b, err := cat.Query(ctx, expr)
				if err != nil {
					return err
				}

				if save != "" {
					if err := cat.Put(ctx, save, b); err != nil {
						return err
					}

					if err := cat.Commit(ctx); err != nil {
						return err
					}
				}

				if count {
					_, err := fmt.Fprintf(a.stdout, "%d\n", b.Count())
					return err
				}

				return a.emit(b, format, out)
			})
		},
	}

	cmd.Flags().StringVar(&save, "save", "", "Store the result under this name.")
	cmd.Flags().BoolVar(&count, "count", false, "Print only the number of set bits.")
	cmd.Flags().StringVarP(&format, "format", "f", formatRanges, "Output format: positions, ranges, bits, wah or roaring.")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file; stdout if empty.")

	return cmd
}

func newRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME...",
		Short: "Remove bitmaps and publish a new version.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			return a.withCatalog(ctx, func(cat *catalog.Catalog) error {
				for _, name := range args {
					if err := cat.Delete(ctx, name); err != nil {
						return err
					}
				}

				return cat.Commit(ctx)
			})
		},
	}
}

func newVacuumCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Delete blobs no version references. Stop other writers first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCatalog(cmd.Context(), func(cat *catalog.Catalog) error {
				n, err := cat.Vacuum(cmd.Context())
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(a.stdout, "removed %d blobs\n", n)

				return err
			})
		},
	}
}
