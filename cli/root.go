// Package cli holds the foliosearch command line: the HTTP server and one-off
// searches over a content directory.
package cli

import (
	"fmt"

	"github.com/meghashyamc/foliosearch/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	env        string
	contentDir string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "foliosearch",
		Short:         "Search engine for blog posts and portfolio projects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "", "config environment to load (config/config.<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.contentDir, "content-dir", "", "directory holding posts/ and projects/")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newSearchCommand(opts))

	return rootCmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.contentDir != "" {
		cfg.Set("CONTENT_DIR", o.contentDir)
	}

	return cfg, nil
}
