package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/deb-research/scorecard-cli/internal/loader"
)

var scorecardCmd = &cobra.Command{
	Use:   "load-scorecard <file-or-dir>",
	Short: "Load annual College Scorecard extracts",
	Long: `Loads one annual extract, or every matching extract in a directory.

The record year comes from the filename (e.g. scorecard_2021.csv); a file
whose name does not resolve is skipped with a warning. Directory runs are
processed oldest year first so the accrediting-agency carry-forward
converges on the most recent value.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sc := loader.NewScorecard(st, catalog(), filenameGrammar(), sourceOptions(), cfg.Load.BatchSize)
		runner := loader.NewBatch(sc)

		reports, total, err := runner.Run(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "load-scorecard")
		}

		for _, rep := range reports {
			fmt.Print(rep.String())
		}
		if len(reports) > 1 {
			fmt.Print(total.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scorecardCmd)
}
