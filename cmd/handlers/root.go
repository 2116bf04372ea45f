/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"fmt"
	"os"

	"blogsmith/internal/config"
	"blogsmith/internal/logger"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blogsmith",
		Short: "blogsmith scrapes blog articles and rewrites them with web research and an LLM.",
		Long: `blogsmith runs a small content pipeline:

  1. scrape    pull new articles from the source blog
  2. research  find related external articles and curate them
  3. enrich    rewrite an article with Gemini using the approved sources
  4. restore   roll an article back to an earlier rewrite

Everything is stored in a local SQLite database by default and can be
served to a frontend with 'blogsmith serve'.`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.blogsmith.yaml or $HOME/.blogsmith.yaml)")

	rootCmd.AddCommand(NewScrapeCmd())
	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewShowCmd())
	rootCmd.AddCommand(NewDeleteCmd())
	rootCmd.AddCommand(NewResearchCmd())
	rootCmd.AddCommand(NewApproveCmd())
	rootCmd.AddCommand(NewRejectCmd())
	rootCmd.AddCommand(NewConfigureCmd())
	rootCmd.AddCommand(NewEnrichCmd())
	rootCmd.AddCommand(NewResetCmd())
	rootCmd.AddCommand(NewChatCmd())
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewRestoreCmd())
	rootCmd.AddCommand(NewModelsCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewTokenCmd())
	rootCmd.AddCommand(NewMigrateCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
}
