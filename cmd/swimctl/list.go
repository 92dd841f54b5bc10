package main

import (
	"github.com/spf13/cobra"
	"github.com/uc-package/swimctl/internal/cleanup"
	"github.com/uc-package/swimctl/internal/filter"
)

func newListCommand(g *globalOptions) *cobra.Command {
	ff := &filterFlags{}
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the images matching the filter without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := g.load()
			if err != nil {
				return err
			}
			ff.apply(cmd.Flags(), &config.Filter)

			spec, err := filter.FromConfig(config.Filter)
			if err != nil {
				return err
			}

			cleaner, err := newCleaner(config)
			if err != nil {
				return err
			}

			candidates, err := cleaner.Preview(cmd.Context(), spec)
			if err != nil {
				return err
			}

			if asJSON {
				return cleanup.WriteJSON(cmd.OutOrStdout(), candidates)
			}
			return cleanup.WriteCandidates(cmd.OutOrStdout(), candidates)
		},
	}

	ff.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the candidates as JSON")
	return cmd
}
