package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stayops-systems/sentinel/cli/internal/client"
	"github.com/stayops-systems/sentinel/cli/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sentinelctl",
	Short: "StayOps Sentinel CLI",
	Long: `sentinelctl is the command-line interface for StayOps Sentinel.

Control the security monitor, manage correlation and response rules,
and review security incidents from your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.sentinelctl/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "default", "profile to use")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// clientForProfile builds an API client from the named profile.
func clientForProfile(cmd *cobra.Command) (*client.Client, error) {
	profile, _ := cmd.Flags().GetString("profile")
	p, err := cfg.GetProfile(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %q not configured: %w", profile, err)
	}
	return client.New(p.ServerURL, p.AccessToken), nil
}
