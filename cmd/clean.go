package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete every imported entity from the active store",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := GetActiveStoreConfig()
		if err != nil {
			return err
		}
		if config.Driver == "" || config.Driver == "memory" {
			return fmt.Errorf("store %s is in memory; nothing to clean", config.Name)
		}

		fmt.Printf("🦅 Connected to %s (%s)\n", config.Name, config.Driver)
		ctx := context.Background()
		s, db, err := openSQLStore(ctx, config, true)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := s.Truncate(ctx); err != nil {
			return fmt.Errorf("failed to clean store: %w", err)
		}
		logrus.WithField("store", config.Name).Info("store cleaned")
		fmt.Println("Store cleaned.")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)
}
