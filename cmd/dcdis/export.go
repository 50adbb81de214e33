package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dcdis/internal/analyze"
	"dcdis/internal/store"
)

func (a *app) exportCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "export <file.bin>",
		Short: "Analyze a container and store the results in SQLite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.load(args[0])
			if err != nil {
				return err
			}
			report, runErr := analyze.Run(cmd.Context(), e.file, a.analyzeOptions(e))
			if runErr != nil && a.v.GetBool("strict") {
				return runErr
			}

			s, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			id, err := s.Save(cmd.Context(), args[0], report, e.classifier, e.names)
			if err != nil {
				return err
			}
			a.log.Info().Str("run", id).Str("db", dbPath).Int("lambdas", len(report.Results)).Int("failed", report.Failed()).Msg("exported")
			fmt.Fprintln(a.stdout, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (required)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}
