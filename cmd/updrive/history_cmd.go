package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/updrive/updrive/internal/client/config"
	"github.com/updrive/updrive/internal/client/sync"
	"github.com/updrive/updrive/internal/client/workspace"
)

func init() {
	rootCmd.AddCommand(newHistoryCmd())
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := cmd.Flag("config").Value.String()
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return fmt.Errorf("no usable config at %s, run 'updrive login' first: %w", configPath, err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ws, err := workspace.NewWorkspace(cfg.WatchDir, cfg.StateDir())
			if err != nil {
				return err
			}

			cmd.SilenceUsage = true

			history := sync.NewSyncHistory(ws.HistoryPath)
			if err := history.Open(); err != nil {
				return err
			}
			defer history.Close()

			entries, err := history.Recent(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(gray.Render("No sync activity yet."))
				return nil
			}

			for _, entry := range entries {
				line := fmt.Sprintf("%s  %-6s  %-9s  %s",
					gray.Render(entry.At.Local().Format("2006-01-02 15:04:05")),
					entry.Op,
					renderOutcome(entry.Outcome),
					entry.Path)
				if entry.Bytes > 0 {
					line += gray.Render(fmt.Sprintf("  (%s in %s)",
						humanize.Bytes(uint64(entry.Bytes)), entry.Duration.Round(10*time.Millisecond)))
				}
				if entry.Error != "" {
					line += "\n" + red.Render("          "+entry.Error)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "How many entries to show")
	return cmd
}

func renderOutcome(outcome sync.Outcome) string {
	switch outcome {
	case sync.OutcomeCommitted:
		return green.Render(string(outcome))
	case sync.OutcomeAbandoned:
		return red.Render(string(outcome))
	case sync.OutcomeOffline:
		return yellow.Render(string(outcome))
	default:
		return gray.Render(string(outcome))
	}
}
