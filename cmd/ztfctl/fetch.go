package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <objectId> [dir]",
	Short: "Download the science, template and difference stamps of one object",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 2 {
		dir = args[1]
	}
	paths, err := newFetcher().FetchAndSave(cmd.Context(), args[0], dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
