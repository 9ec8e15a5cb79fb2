package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/deb-research/scorecard-cli/internal/loader"
)

var ipedsCmd = &cobra.Command{
	Use:   "load-ipeds <file>",
	Short: "Load the IPEDS institutional directory file",
	Long:  "Loads an IPEDS header file (e.g. hd2022.csv) into the institutions table. Re-running merges field-by-field: a later non-blank value overwrites, a blank one never erases stored data.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		l := loader.NewInstitutions(st, catalog(), sourceOptions(), cfg.Load.BatchSize)

		rep, err := l.LoadFile(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "load-ipeds")
		}

		fmt.Print(rep.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ipedsCmd)
}
