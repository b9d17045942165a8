package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Inspect recorded classification feedback",
	}
	cmd.AddCommand(feedbackStatsCmd())
	return cmd
}

func feedbackStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate feedback statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			stats, err := store.GetFeedbackStats(ctx)
			if err != nil {
				return err
			}

			if stats.Records == 0 {
				fmt.Println("No feedback recorded yet.")
				return nil
			}

			fmt.Printf("Records:         %d\n", stats.Records)
			fmt.Printf("Mean rating:     %.2f\n", stats.MeanRating)
			fmt.Printf("Correction rate: %.1f%%\n", stats.CorrectionRate*100)

			if len(stats.ByChapter) > 0 {
				fmt.Println("\nBy chapter:")
				for _, ch := range stats.ByChapter {
					fmt.Printf("  %s  records=%-4d rating=%.2f corrections=%.1f%%\n",
						ch.Chapter, ch.Records, ch.MeanRating, ch.CorrectionRate*100)
				}
			}
			return nil
		},
	}
}
