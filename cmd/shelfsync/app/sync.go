package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shelfsync/shelfsync/internal/config"
	"github.com/shelfsync/shelfsync/internal/sources/shopify"
	"github.com/shelfsync/shelfsync/pkg/errors"
	"github.com/shelfsync/shelfsync/pkg/feed"
	"github.com/shelfsync/shelfsync/pkg/logging"
	"github.com/shelfsync/shelfsync/pkg/match"
	"github.com/shelfsync/shelfsync/pkg/report"
	"github.com/shelfsync/shelfsync/pkg/syncer"
)

// syncOptions holds the sync command's flag values.
type syncOptions struct {
	feedPath  string
	remapPath string

	locationName string
	locationID   string

	mode       string
	chunkSize  int
	fullSweep  bool
	maxUpdates int
	dryRun     bool

	referenceTag string
	reportBase   string
	markdownPath string
}

// newSyncCommand creates the sync command: one full reconciliation run.
func (a *App) newSyncCommand() *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the feed and push corrected quantities",
		Long: `Sync builds an index of the shop's inventory records, matches every feed
row against it, deduplicates the matches by inventory item, and pushes the
corrected available quantities to the target location in chunks.

The run always completes and prints a summary; transport failures and
per-row rejections are reported, never fatal. Only configuration problems
(missing credentials, unresolvable location) abort the run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd, opts)
		},
	}

	addSyncFlags(cmd.Flags(), opts)
	if err := cmd.MarkFlagRequired("feed"); err != nil {
		panic("programming error: " + err.Error())
	}

	return cmd
}

// addSyncFlags registers the sync command's flags.
func addSyncFlags(flags *pflag.FlagSet, opts *syncOptions) {
	flags.StringVarP(&opts.feedPath, "feed", "f", "", "path to the inventory feed CSV (sku,quantity)")
	flags.StringVar(&opts.remapPath, "remap", "", "path to the optional YAML SKU remap table")

	flags.StringVarP(&opts.locationName, "location", "l", "", "stock location name to resolve")
	flags.StringVar(&opts.locationID, "location-id", "", "stock location id (skips name resolution)")

	flags.StringVar(&opts.mode, "mode", string(match.ModeNormalize), "matching mode: exact or normalize")
	flags.IntVar(&opts.chunkSize, "chunk-size", 0, "rows per bulk write call (default 100)")
	flags.BoolVar(&opts.fullSweep, "full-sweep", false, "write every matched item, ignoring --max-updates")
	flags.IntVar(&opts.maxUpdates, "max-updates", 0, "cap on items written when --full-sweep is off (0 = no cap)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "plan the run without writing anything")

	flags.StringVar(&opts.referenceTag, "reference-tag", "", "reference document URI attached to bulk writes")
	flags.StringVar(&opts.reportBase, "report", "", "base path for the CSV artifacts (<base>-changed.csv, <base>-misses.csv)")
	flags.StringVar(&opts.markdownPath, "report-markdown", "", "path for a markdown run report")
}

// runSync executes the sync command.
func (a *App) runSync(cmd *cobra.Command, opts *syncOptions) error {
	ctx := logging.WithLogger(cmd.Context(), a.logger)

	mode := match.Mode(opts.mode)
	if mode != match.ModeExact && mode != match.ModeNormalize {
		return errors.NewConfigError("mode", "matching mode must be exact or normalize", nil)
	}

	domain, token, err := config.ShopCredentials()
	if err != nil {
		return err
	}

	rows, err := feed.ParseFile(opts.feedPath)
	if err != nil {
		return err
	}
	remap, err := feed.LoadRemapFile(opts.remapPath)
	if err != nil {
		return err
	}

	var clientOpts []shopify.Option
	if opts.referenceTag != "" {
		clientOpts = append(clientOpts, shopify.WithReferenceTag(opts.referenceTag))
	}
	backend := shopify.New(domain, token, a.config.APIVersion, clientOpts...)

	engine := syncer.New(backend, syncer.Config{
		LocationID:   opts.locationID,
		LocationName: opts.locationName,
		Mode:         mode,
		ChunkSize:    opts.chunkSize,
		FullSweep:    opts.fullSweep,
		MaxUpdates:   opts.maxUpdates,
		DryRun:       opts.dryRun,
	})

	a.logger.Info().
		Str("shop", domain).
		Int("feed_rows", len(rows)).
		Bool("dry_run", opts.dryRun).
		Msg("Starting reconciliation")

	summary, err := engine.Run(ctx, rows, remap)
	if err != nil {
		return err
	}

	return a.writeReports(summary, opts)
}

// writeReports renders the summary to the console and any requested
// artifacts.
func (a *App) writeReports(summary *report.Summary, opts *syncOptions) error {
	if err := report.PrintConsole(os.Stdout, summary); err != nil {
		return err
	}

	if opts.reportBase != "" {
		if err := report.SaveCSV(opts.reportBase, summary); err != nil {
			return err
		}
		a.logger.Info().Str("base", opts.reportBase).Msg("CSV artifacts written")
	}

	if opts.markdownPath != "" {
		f, err := os.Create(opts.markdownPath)
		if err != nil {
			return errors.WrapIO("create", opts.markdownPath, err)
		}
		if err := report.WriteMarkdown(f, summary); err != nil {
			f.Close() //nolint:errcheck // write error takes precedence
			return err
		}
		if err := f.Close(); err != nil {
			return errors.WrapIO("close", opts.markdownPath, err)
		}
		a.logger.Info().Str("path", opts.markdownPath).Msg("Markdown report written")
	}

	return nil
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shelfsync %s (commit %s, built %s)\n",
				a.version, a.commit, a.date)
		},
	}
}
