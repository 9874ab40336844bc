package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stayops-systems/sentinel/cli/pkg/output"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Security monitor control",
	Long:  "Start, stop, and inspect the background security monitor",
}

var monitorStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		if err := c.StartMonitor(); err != nil {
			return fmt.Errorf("failed to start monitor: %w", err)
		}
		output.Success("Monitor started")
		return nil
	},
}

var monitorStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		if err := c.StopMonitor(); err != nil {
			return fmt.Errorf("failed to stop monitor: %w", err)
		}
		output.Success("Monitor stopped")
		return nil
	},
}

var monitorStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitor state and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		status, err := c.GetMonitorStatus()
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(status)
		}

		output.Info("State: %s", status.State)
		output.Info("Ingestion interval: %s", status.Config.IngestionInterval)
		output.Info("Deep scan interval: %s", status.Config.DeepScanInterval)
		output.Info("Correlation interval: %s", status.Config.CorrelationInterval)
		output.Info("Auto response: %v (min risk %d, %d/hour)",
			status.Config.AutoResponseEnabled,
			status.Config.AutoResponseMinRisk,
			status.Config.AutoResponsePerHour)
		return nil
	},
}

var monitorStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show monitoring statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		stats, err := c.GetMonitorStats()
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(stats)
		}

		output.Info("Events scanned:      %d", stats.EventsScanned)
		output.Info("Threats detected:    %d", stats.ThreatsDetected)
		output.Info("Incidents created:   %d", stats.IncidentsCreated)
		output.Info("Responses executed:  %d", stats.ResponsesExecuted)
		output.Info("Responses throttled: %d", stats.ResponsesThrottled)
		output.Info("Alerts dispatched:   %d", stats.AlertsDispatched)
		if !stats.LastIngestionTick.IsZero() {
			output.Info("Last ingestion tick: %s", stats.LastIngestionTick.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var monitorCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run an immediate scan",
	Long:  "Run the ingestion, deep scan, and correlation passes right now, regardless of monitor state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		stats, err := c.ForceCheck()
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}

		output.Success("Check complete")
		output.Info("Events scanned:   %d", stats.EventsScanned)
		output.Info("Threats detected: %d", stats.ThreatsDetected)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.AddCommand(monitorStartCmd)
	monitorCmd.AddCommand(monitorStopCmd)
	monitorCmd.AddCommand(monitorStatusCmd)
	monitorCmd.AddCommand(monitorStatsCmd)
	monitorCmd.AddCommand(monitorCheckCmd)
}
