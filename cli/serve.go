package cli

import (
	"github.com/meghashyamc/foliosearch/api"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var watch bool

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the index and serve the search API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("watch") {
				cfg.Set("CONTENT_WATCH", watch)
			}

			return api.Run(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().BoolVar(&watch, "watch", false, "rebuild the index when content files change")

	return serveCmd
}
