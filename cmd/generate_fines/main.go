package main

import (
	"fmt"
	"os"

	"library-system/library"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func main() {
	var (
		configPath string
		schedule   string
	)

	rootCmd := &cobra.Command{
		Use:   "generate_fines",
		Short: "Issue fines for overdue loans",
		Long: `Scans for active loans past their due date that have no fine yet and
issues one OUTSTANDING fine per loan. Runs once by default; with --schedule
it keeps running on the given cron expression.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := library.LoadConfig(configPath)
			if err != nil {
				return err
			}
			db, err := library.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			lib, err := library.NewLibrary(db, cfg)
			if err != nil {
				return err
			}

			if schedule == "" {
				count, err := lib.GenerateFines()
				if err != nil {
					return err
				}
				fmt.Printf("Generated %d fine(s).\n", count)
				return nil
			}

			c := cron.New()
			_, err = c.AddFunc(schedule, func() {
				count, err := lib.GenerateFines()
				if err != nil {
					fmt.Fprintf(os.Stderr, "fine run failed: %v\n", err)
					return
				}
				fmt.Printf("Generated %d fine(s).\n", count)
			})
			if err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}
			fmt.Printf("Running fine generation on schedule %q. Ctrl-C to stop.\n", schedule)
			c.Run()
			return nil
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config file (default: library.yaml)")
	rootCmd.Flags().StringVar(&schedule, "schedule", "", "cron expression; when set, keep running on this schedule")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
