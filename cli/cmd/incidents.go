package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stayops-systems/sentinel/cli/pkg/output"
)

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Security incident management",
	Long:  "Review and close security incidents opened by the monitor",
}

var incidentsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List security incidents",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		severity, _ := cmd.Flags().GetString("severity")

		incidents, err := c.ListIncidents(status, severity)
		if err != nil {
			return fmt.Errorf("failed to list incidents: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(incidents)
		}

		if len(incidents) == 0 {
			output.Info("No incidents found")
			return nil
		}

		table := output.NewTable([]string{"ID", "Type", "Severity", "Status", "Created"})
		for _, inc := range incidents {
			table.AddRow([]string{
				inc.ID,
				string(inc.ThreatType),
				string(inc.Severity),
				string(inc.Status),
				inc.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		table.Render()
		return nil
	},
}

var incidentsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get incident details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}

		inc, err := c.GetIncident(args[0])
		if err != nil {
			return fmt.Errorf("failed to get incident: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(inc)
		}

		output.Info("Incident ID: %s", inc.ID)
		output.Info("Title: %s", inc.Title)
		output.Info("Threat: %s (%s)", inc.ThreatID, inc.ThreatType)
		output.Info("Severity: %s", inc.Severity)
		output.Info("Status: %s", inc.Status)
		output.Info("Created: %s", inc.CreatedAt.Format("2006-01-02 15:04:05"))
		output.Info("Updated: %s", inc.UpdatedAt.Format("2006-01-02 15:04:05"))

		if inc.ClosedAt != nil {
			output.Info("Closed: %s", inc.ClosedAt.Format("2006-01-02 15:04:05"))
		}
		if inc.Resolution != "" {
			output.Info("Resolution: %s", inc.Resolution)
		}

		if len(inc.ResponseActions) > 0 {
			output.Info("\nResponse actions:")
			for _, a := range inc.ResponseActions {
				status := "ok"
				if !a.Success {
					status = "failed: " + a.Message
				}
				output.Info("  %s (rule %s): %s", a.Type, a.RuleID, status)
			}
		}

		if len(inc.Timeline) > 0 {
			output.Info("\nTimeline:")
			for _, entry := range inc.Timeline {
				output.Info("  %s [%s] %s", entry.Timestamp.Format("15:04:05"), entry.Source, entry.Description)
			}
		}
		return nil
	},
}

var incidentsCloseCmd = &cobra.Command{
	Use:   "close [id]",
	Short: "Close an incident",
	Long:  "Close an incident with a resolution note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolution, _ := cmd.Flags().GetString("resolution")
		if resolution == "" {
			return fmt.Errorf("resolution is required")
		}

		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}

		inc, err := c.CloseIncident(args[0], resolution)
		if err != nil {
			return fmt.Errorf("failed to close incident: %w", err)
		}

		output.Success("Incident %s closed", inc.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(incidentsCmd)
	incidentsCmd.AddCommand(incidentsListCmd)
	incidentsCmd.AddCommand(incidentsGetCmd)
	incidentsCmd.AddCommand(incidentsCloseCmd)

	incidentsListCmd.Flags().String("status", "", "Filter by status (open, contained, closed)")
	incidentsListCmd.Flags().StringP("severity", "s", "", "Filter by severity (low, medium, high, critical)")

	incidentsCloseCmd.Flags().StringP("resolution", "r", "", "Resolution note")
	if err := incidentsCloseCmd.MarkFlagRequired("resolution"); err != nil {
		panic(fmt.Sprintf("failed to mark resolution as required: %v", err))
	}
}
