package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	internal "github.com/ZanzyTHEbar/fsindex/fsindex"
	"github.com/ZanzyTHEbar/fsindex/fsindex/config"
	"github.com/ZanzyTHEbar/fsindex/fsindex/scan"
	"github.com/ZanzyTHEbar/fsindex/fsindex/search"
	"github.com/ZanzyTHEbar/fsindex/fsindex/store"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	dbDSN       string
	workers     int
	batchSize   int
	skipFolders bool
	searchLimit int
	verbose     bool
)

// barProgress renders one progress bar per pipeline phase.
// progressbar's Add is safe for the scanner's concurrent ticks.
type barProgress struct {
	bar *progressbar.ProgressBar
}

func (b *barProgress) StartPhase(name string, total int) {
	if b.bar != nil {
		b.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	b.bar = progressbar.Default(int64(total), name)
}

func (b *barProgress) Tick(n int) {
	if b.bar != nil {
		b.bar.Add(n)
	}
}

func (b *barProgress) finish() {
	if b.bar != nil {
		b.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	// Flags override config file values when set.
	if dbDSN != "" {
		if !strings.HasPrefix(dbDSN, "file:") && !strings.Contains(dbDSN, "://") {
			// Accept a bare filesystem path for convenience.
			dbDSN = "file:" + dbDSN
		}
		cfg.Database.DSN = dbDSN
	}
	if workers > 0 {
		cfg.Index.Workers = workers
	}
	if batchSize > 0 {
		cfg.Index.BatchSize = batchSize
	}
	if searchLimit > 0 {
		cfg.Search.Limit = searchLimit
	}
	return cfg, nil
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <root>",
		Short: "Build the filesystem catalog for a root directory",
		Long: `Builds a persisted snapshot of the directory and file structure under the
given root. Directories are collected and persisted single-threaded so the
folder tree is consistent; file metadata is gathered by a parallel worker
pool and bulk-loaded in large transactions.

With --skip-folders the folder rows from the previous run are reused and
only file metadata is refreshed; stale file rows owned by those folders are
superseded first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			pipeline := scan.NewPipeline(st, scan.Options{
				Root:        args[0],
				SkipFolders: skipFolders,
				Workers:     cfg.Index.Workers,
				BatchSize:   cfg.Index.BatchSize,
				Exclude:     cfg.Index.Exclude,
			})

			progress := &barProgress{}
			result, err := pipeline.Run(ctx, progress)
			progress.finish()
			if err != nil {
				return err
			}

			fmt.Printf("Indexed %d folders and %d files in %s\n",
				result.Folders, result.Files, result.Duration.Round(10*time.Millisecond))
			if result.Warnings > 0 {
				fmt.Printf("Skipped %d inaccessible entries, for example:\n", result.Warnings)
				for _, ex := range result.WarningExamples {
					fmt.Printf("  %s\n", ex)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipFolders, "skip-folders", false, "reuse the persisted folder index and refresh file metadata only")
	cmd.Flags().IntVar(&workers, "workers", 0, "file scan workers (0 = one per CPU)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "file rows per bulk-insert transaction")
	return cmd
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog by file name",
		Long: `Searches the persisted catalog. A plain query matches file names by
anchored prefix using the name index. A query containing * (any run of
characters) or ? (exactly one character) is evaluated as a pattern against
every indexed file, which is slower.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer st.Close()

			engine := search.NewEngine(st, cfg.Search.Limit)
			results, err := engine.Search(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Found %d results (%s query, limit %d)\n",
				len(results.Paths), results.Mode, cfg.Search.Limit)
			for _, p := range results.Paths {
				fmt.Printf("-> %s\n", p)
			}
			if len(results.Paths) == 0 {
				fmt.Println("No files matched your search query.")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of results")
	return cmd
}

func main() {
	logger := internal.GetLogger()

	rootCmd := &cobra.Command{
		Use:   internal.DefaultAppName,
		Short: "Persisted filesystem catalog and name search",
		Long: `fsindex builds a snapshot of a filesystem's directory and file structure
in a local database so name lookups avoid repeated live traversal.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", "", "catalog database DSN (default "+internal.DefaultDatabaseDSN+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newIndexCmd(), newSearchCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}
