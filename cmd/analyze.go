package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"wp-pump/internal/engine"
	"wp-pump/internal/report"
	"wp-pump/internal/schema"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dump.sql>",
	Short: "Parse a dump and show its prefix, table roles and row counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := engine.Load(context.Background(), engine.NewFileSource(afero.NewOsFs(), args[0]), engine.LoadOptions{
			Prefix:              viper.GetString("import.prefix"),
			MinCoreTables:       viper.GetInt("import.min_core_tables"),
			ContinueOnMalformed: viper.GetBool("import.continue_on_malformed"),
		})
		if errors.Is(err, schema.ErrPrefixNotDetected) {
			report.Layout(os.Stdout, ds.Layout, nil)
			return err
		}
		if err != nil {
			return err
		}

		fmt.Printf("🔍 %s\n", args[0])
		report.Layout(os.Stdout, ds.Layout, ds.Report())
		for _, w := range ds.Warnings {
			fmt.Println(w.String())
		}

		plugins := ds.Layout.PluginTables()
		if len(plugins) > 0 {
			fmt.Println("\nPLUGINS:")
			for _, name := range sortedKeys(plugins) {
				fmt.Printf("  %-16s %v\n", name, plugins[name])
			}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(analyzeCmd)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
