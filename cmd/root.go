package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wp-pump/internal/engine"
	"wp-pump/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var RootCmd = &cobra.Command{
	Use:   "wp-pump",
	Short: "Import WordPress SQL dumps into a structured content store",
	Long: `
 __      ___ __        _ __  _   _ _ __ ___  _ __
 \ \ /\ / / '_ \ _____| '_ \| | | | '_ ` + "`" + ` _ \| '_ \
  \ V  V /| |_) |_____| |_) | |_| | | | | | | |_) |
   \_/\_/ | .__/      | .__/ \__,_|_| |_| |_| .__/
          |_|         |_|                   |_|

WP PUMP 🦅 - WordPress dump importer
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(os.Stderr, viper.GetString("log.level"), viper.GetString("log.format"))
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := RootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./wp-pump.yaml)")
	pf.String("driver", "", "entity store driver: memory, sqlite, mysql, postgres, pgx, sqlserver, oracle")
	pf.String("dsn", "", "entity store data source name")
	pf.String("log-level", "", "log level: silent, error, warn, info, debug")
	pf.String("log-format", "", "log format: text or json")

	viper.BindPFlag("store.driver", pf.Lookup("driver"))
	viper.BindPFlag("store.dsn", pf.Lookup("dsn"))
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.format", pf.Lookup("log-format"))

	setDefaults()
}

func setDefaults() {
	routes := engine.DefaultRoutes()
	seo := engine.DefaultSEOKeys()

	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "wp-pump.db")
	viper.SetDefault("import.dry_run", false)
	viper.SetDefault("import.skip_plugin_tables", false)
	viper.SetDefault("import.media_dest", "media")
	viper.SetDefault("import.media_url", "/media/")
	viper.SetDefault("import.min_core_tables", 1)
	viper.SetDefault("import.workers", 4)
	viper.SetDefault("import.store_timeout", 30*time.Second)
	viper.SetDefault("import.continue_on_malformed", false)
	viper.SetDefault("routes.post", routes.Post)
	viper.SetDefault("routes.page", routes.Page)
	viper.SetDefault("routes.category", routes.Category)
	viper.SetDefault("routes.tag", routes.Tag)
	viper.SetDefault("seo.title_keys", seo.Title)
	viper.SetDefault("seo.description_keys", seo.Description)
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "text")
}

// initConfig reads .env, the config file and WPPUMP_* environment variables.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Executable directory first, then the working directory.
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("wp-pump")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WPPUMP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Failed to read config file:", err)
	}
}
