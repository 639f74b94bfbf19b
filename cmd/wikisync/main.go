package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/wikisync/internal/config"
	"github.com/dgallion1/wikisync/internal/confluence"
)

var (
	siteFile   string
	spaceKey   string
	parentPage string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "wikisync",
	Short: "Publish a docs tree to a Confluence space",
	Long: `wikisync mirrors a documentation site (mkdocs.yml nav plus its docs
directory) into a Confluence space, one wiki page per document.

Settings come from the environment (WIKI_URL, WIKI_SPACE, WIKI_TOKEN, ...);
the flags below override the matching variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&siteFile, "site", "", "site file (overrides SITE_FILE)")
	rootCmd.PersistentFlags().StringVar(&spaceKey, "space", "", "wiki space key (overrides WIKI_SPACE)")
	rootCmd.PersistentFlags().StringVar(&parentPage, "parent", "", "main parent page title (overrides WIKI_PARENT_PAGE)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log intended writes without changing the wiki")

	rootCmd.AddCommand(syncCmd, serveCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Load()
	if siteFile != "" {
		cfg.SiteFile = siteFile
	}
	if spaceKey != "" {
		cfg.SpaceKey = spaceKey
	}
	if parentPage != "" {
		cfg.MainParentTitle = parentPage
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = dryRun
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newClient(cfg config.Config) *confluence.Client {
	return confluence.NewClient(cfg.WikiURL, confluence.Options{
		Username:  cfg.WikiUsername,
		Password:  cfg.WikiPassword,
		Token:     cfg.WikiToken,
		Timeout:   cfg.WikiTimeout,
		RateLimit: cfg.RateLimit,
		Stats:     confluence.NewCallStats(cfg.RunTTL),
	})
}
