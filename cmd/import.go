package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"wp-pump/internal/engine"
	"wp-pump/internal/report"

	"github.com/gosuri/uiprogress"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	reportPath  string
	maxWarnings int
	noProgress  bool
)

var importCmd = &cobra.Command{
	Use:   "import <dump.sql>",
	Short: "Import a WordPress SQL dump into the entity store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cfg, err := GetActiveStoreConfig()
		if err != nil {
			return err
		}
		opts := importOptions()
		st, closeStore, err := openStore(ctx, cfg, opts.DryRun)
		if err != nil {
			return err
		}
		defer closeStore()

		mode := ""
		if opts.DryRun {
			mode = " [DRY RUN]"
		}
		fmt.Printf("🦅 Importing %s into %s (%s)%s\n", args[0], cfg.Name, cfg.Driver, mode)

		bars := newStageBars(!noProgress)
		opts.OnLoad = func(ds *engine.Dataset) {
			report.Layout(os.Stdout, ds.Layout, ds.Report())
			fmt.Println()
			bars.start()
		}
		opts.OnStage = bars.add
		opts.OnProgress = bars.incr

		sum, runErr := engine.Run(ctx, engine.NewFileSource(afero.NewOsFs(), args[0]), st, opts)
		bars.stop()

		if sum != nil {
			if sum.Prefix == "" {
				// The layout was not printed when inference failed.
				report.Layout(os.Stdout, sum.Layout, nil)
			}
			report.Summary(os.Stdout, sum, maxWarnings)
			if reportPath != "" {
				if err := report.SaveYAML(afero.NewOsFs(), reportPath, sum); err != nil {
					return err
				}
				fmt.Printf("Report written to %s\n", reportPath)
			}
		}
		if runErr != nil {
			return fmt.Errorf("import failed: %w", runErr)
		}
		return nil
	},
}

// importOptions assembles engine options from viper (flag > env > file > default).
func importOptions() engine.Options {
	opts := engine.Options{
		DryRun:              viper.GetBool("import.dry_run"),
		SkipPluginTables:    viper.GetBool("import.skip_plugin_tables"),
		MediaDir:            viper.GetString("import.media_dir"),
		MediaDest:           viper.GetString("import.media_dest"),
		MediaURL:            viper.GetString("import.media_url"),
		SiteURL:             viper.GetString("import.site_url"),
		Prefix:              viper.GetString("import.prefix"),
		MinCoreTables:       viper.GetInt("import.min_core_tables"),
		ContinueOnMalformed: viper.GetBool("import.continue_on_malformed"),
		Workers:             viper.GetInt("import.workers"),
		StoreTimeout:        viper.GetDuration("import.store_timeout"),
	}
	opts.Routes = engine.Routes{
		Post:     viper.GetString("routes.post"),
		Page:     viper.GetString("routes.page"),
		Category: viper.GetString("routes.category"),
		Tag:      viper.GetString("routes.tag"),
	}
	opts.SEO = engine.SEOKeys{
		Title:       viper.GetStringSlice("seo.title_keys"),
		Description: viper.GetStringSlice("seo.description_keys"),
	}
	return opts
}

// stageBars shows one progress bar per stage batch.
type stageBars struct {
	enabled bool
	p       *uiprogress.Progress
	mu      sync.Mutex
	bars    map[string]*uiprogress.Bar
}

func newStageBars(enabled bool) *stageBars {
	return &stageBars{enabled: enabled, bars: make(map[string]*uiprogress.Bar)}
}

func (s *stageBars) start() {
	if !s.enabled {
		return
	}
	s.p = uiprogress.New()
	s.p.Start()
}

func (s *stageBars) add(stage string, total int) {
	if s.p == nil {
		logrus.WithFields(logrus.Fields{"stage": stage, "rows": total}).Info("batch started")
		return
	}
	name := stage
	bar := s.p.AddBar(total).AppendCompleted().PrependElapsed()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return fmt.Sprintf("%-12s", name)
	})
	s.mu.Lock()
	s.bars[stage] = bar
	s.mu.Unlock()
}

func (s *stageBars) incr(stage string) {
	s.mu.Lock()
	bar := s.bars[stage]
	s.mu.Unlock()
	if bar != nil {
		bar.Incr()
	}
}

func (s *stageBars) stop() {
	if s.p != nil {
		s.p.Stop()
	}
}

func init() {
	RootCmd.AddCommand(importCmd)

	f := importCmd.Flags()
	f.Bool("dry-run", false, "Run every stage without writing to the store or copying media")
	f.Bool("skip-plugins", false, "Do not import rows of unrecognised plugin tables")
	f.String("media-dir", "", "Legacy wp-content/uploads directory to copy media from")
	f.String("media-dest", "", "Directory media files are copied to")
	f.String("media-url", "", "Public URL prefix of copied media")
	f.String("site-url", "", "Legacy site URL (defaults to the dump's home option)")
	f.String("prefix", "", "Table prefix, skipping inference")
	f.Int("min-core-tables", 0, "Core tables a prefix must cover to be accepted")
	f.IntP("workers", "w", 0, "Rows imported in parallel by parallel-safe stages")
	f.Duration("store-timeout", 0, "Deadline of a single store call")
	f.Bool("continue-on-malformed", false, "Skip malformed statements with a warning")
	f.StringVar(&reportPath, "report", "", "Write the run summary as yaml to this path")
	f.IntVar(&maxWarnings, "max-warnings", 50, "Warnings listed in the terminal summary")
	f.BoolVar(&noProgress, "no-progress", false, "Disable progress bars")

	for key, flag := range map[string]string{
		"import.dry_run":               "dry-run",
		"import.skip_plugin_tables":    "skip-plugins",
		"import.media_dir":             "media-dir",
		"import.media_dest":            "media-dest",
		"import.media_url":             "media-url",
		"import.site_url":              "site-url",
		"import.prefix":                "prefix",
		"import.min_core_tables":       "min-core-tables",
		"import.workers":               "workers",
		"import.store_timeout":         "store-timeout",
		"import.continue_on_malformed": "continue-on-malformed",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}
}
