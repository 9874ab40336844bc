package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stayops-systems/sentinel/cli/internal/client"
	"github.com/stayops-systems/sentinel/cli/internal/config"
	"github.com/stayops-systems/sentinel/cli/pkg/output"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication management",
	Long:  "Log in to a sentinel server and manage profiles",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with an API key",
	Long:  "Exchange an API key for an access token and store it in the active profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, _ := cmd.Flags().GetString("server")
		apiKey, _ := cmd.Flags().GetString("api-key")
		subject, _ := cmd.Flags().GetString("subject")

		profile, _ := cmd.Flags().GetString("profile")
		if serverURL == "" {
			if p, err := cfg.GetProfile(profile); err == nil {
				serverURL = p.ServerURL
			}
		}
		if serverURL == "" {
			return fmt.Errorf("no server URL: pass --server or configure the profile first")
		}

		c := client.New(serverURL, "")
		token, err := c.Login(apiKey, subject)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		cfg.SetProfile(profile, &config.Profile{
			ServerURL:   serverURL,
			AccessToken: token,
		})
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		output.Success("Logged in to %s as %s (profile %q)", serverURL, subject, profile)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		p, err := cfg.GetProfile(profile)
		if err != nil {
			return fmt.Errorf("profile %q not configured: %w", profile, err)
		}

		p.AccessToken = ""
		cfg.SetProfile(profile, p)
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		output.Success("Logged out of profile %q", profile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)

	authLoginCmd.Flags().String("server", "", "Server URL (default: profile server URL)")
	authLoginCmd.Flags().String("api-key", "", "API key issued by the operator")
	authLoginCmd.Flags().String("subject", "", "Subject name recorded in the token")
	if err := authLoginCmd.MarkFlagRequired("api-key"); err != nil {
		panic(fmt.Sprintf("failed to mark api-key as required: %v", err))
	}
	if err := authLoginCmd.MarkFlagRequired("subject"); err != nil {
		panic(fmt.Sprintf("failed to mark subject as required: %v", err))
	}
}
