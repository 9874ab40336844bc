package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stayops-systems/sentinel/cli/pkg/output"
	"github.com/stayops-systems/sentinel/internal/models"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Detection and response rule management",
	Long:  "Manage correlation rules and automated response rules",
}

var rulesCorrelationCmd = &cobra.Command{
	Use:     "correlation",
	Aliases: []string{"corr"},
	Short:   "Correlation rules",
}

var rulesCorrelationListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List correlation rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		rules, err := c.ListCorrelationRules()
		if err != nil {
			return fmt.Errorf("failed to list correlation rules: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(rules)
		}

		if len(rules) == 0 {
			output.Info("No correlation rules found")
			return nil
		}

		table := output.NewTable([]string{"ID", "Name", "Window", "Min Events", "Priority", "Enabled"})
		for _, r := range rules {
			table.AddRow([]string{
				r.ID,
				r.Name,
				r.TimeWindow.String(),
				fmt.Sprintf("%d", r.MinEvents),
				fmt.Sprintf("%d", r.Priority),
				fmt.Sprintf("%v", r.Enabled),
			})
		}
		table.Render()
		return nil
	},
}

var rulesCorrelationShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a correlation rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		rules, err := c.ListCorrelationRules()
		if err != nil {
			return fmt.Errorf("failed to list correlation rules: %w", err)
		}
		for i := range rules {
			if rules[i].ID == args[0] {
				return output.JSON(rules[i])
			}
		}
		return fmt.Errorf("correlation rule %s not found", args[0])
	},
}

var rulesCorrelationEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Enable a correlation rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCorrelationEnabled(cmd, args[0], true)
	},
}

var rulesCorrelationDisableCmd = &cobra.Command{
	Use:   "disable [id]",
	Short: "Disable a correlation rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCorrelationEnabled(cmd, args[0], false)
	},
}

func setCorrelationEnabled(cmd *cobra.Command, id string, enabled bool) error {
	c, err := clientForProfile(cmd)
	if err != nil {
		return err
	}
	rules, err := c.ListCorrelationRules()
	if err != nil {
		return fmt.Errorf("failed to list correlation rules: %w", err)
	}
	for i := range rules {
		if rules[i].ID != id {
			continue
		}
		rules[i].Enabled = enabled
		if err := c.UpdateCorrelationRule(&rules[i]); err != nil {
			return fmt.Errorf("failed to update correlation rule: %w", err)
		}
		if enabled {
			output.Success("Correlation rule %s enabled", id)
		} else {
			output.Success("Correlation rule %s disabled", id)
		}
		return nil
	}
	return fmt.Errorf("correlation rule %s not found", id)
}

var rulesCorrelationCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a correlation rule from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		var rule models.CorrelationRule
		if err := readRuleFile(file, &rule); err != nil {
			return err
		}

		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		if err := c.CreateCorrelationRule(&rule); err != nil {
			return fmt.Errorf("failed to create correlation rule: %w", err)
		}
		output.Success("Correlation rule %s created", rule.ID)
		return nil
	},
}

var rulesCorrelationDeleteCmd = &cobra.Command{
	Use:     "delete [id]",
	Aliases: []string{"rm"},
	Short:   "Delete a correlation rule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		if err := c.DeleteCorrelationRule(args[0]); err != nil {
			return fmt.Errorf("failed to delete correlation rule: %w", err)
		}
		output.Success("Correlation rule %s deleted", args[0])
		return nil
	},
}

var rulesResponseCmd = &cobra.Command{
	Use:     "response",
	Aliases: []string{"resp"},
	Short:   "Automated response rules",
}

var rulesResponseListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List response rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		rules, err := c.ListResponseRules()
		if err != nil {
			return fmt.Errorf("failed to list response rules: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(rules)
		}

		if len(rules) == 0 {
			output.Info("No response rules found")
			return nil
		}

		table := output.NewTable([]string{"ID", "Name", "Actions", "Priority", "Auto", "Enabled"})
		for _, r := range rules {
			table.AddRow([]string{
				r.ID,
				r.Name,
				fmt.Sprintf("%d", len(r.Actions)),
				fmt.Sprintf("%d", r.Priority),
				fmt.Sprintf("%v", r.AutoExecute),
				fmt.Sprintf("%v", r.Enabled),
			})
		}
		table.Render()
		return nil
	},
}

var rulesResponseEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Enable a response rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setResponseEnabled(cmd, args[0], true)
	},
}

var rulesResponseDisableCmd = &cobra.Command{
	Use:   "disable [id]",
	Short: "Disable a response rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setResponseEnabled(cmd, args[0], false)
	},
}

func setResponseEnabled(cmd *cobra.Command, id string, enabled bool) error {
	c, err := clientForProfile(cmd)
	if err != nil {
		return err
	}
	rules, err := c.ListResponseRules()
	if err != nil {
		return fmt.Errorf("failed to list response rules: %w", err)
	}
	for i := range rules {
		if rules[i].ID != id {
			continue
		}
		rules[i].Enabled = enabled
		if err := c.UpdateResponseRule(&rules[i]); err != nil {
			return fmt.Errorf("failed to update response rule: %w", err)
		}
		if enabled {
			output.Success("Response rule %s enabled", id)
		} else {
			output.Success("Response rule %s disabled", id)
		}
		return nil
	}
	return fmt.Errorf("response rule %s not found", id)
}

var rulesResponseCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a response rule from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		var rule models.ResponseRule
		if err := readRuleFile(file, &rule); err != nil {
			return err
		}

		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		if err := c.CreateResponseRule(&rule); err != nil {
			return fmt.Errorf("failed to create response rule: %w", err)
		}
		output.Success("Response rule %s created", rule.ID)
		return nil
	},
}

var rulesResponseDeleteCmd = &cobra.Command{
	Use:     "delete [id]",
	Aliases: []string{"rm"},
	Short:   "Delete a response rule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientForProfile(cmd)
		if err != nil {
			return err
		}
		if err := c.DeleteResponseRule(args[0]); err != nil {
			return fmt.Errorf("failed to delete response rule: %w", err)
		}
		output.Success("Response rule %s deleted", args[0])
		return nil
	},
}

func readRuleFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rule file: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid rule file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesCorrelationCmd)
	rulesCmd.AddCommand(rulesResponseCmd)

	rulesCorrelationCmd.AddCommand(rulesCorrelationListCmd)
	rulesCorrelationCmd.AddCommand(rulesCorrelationShowCmd)
	rulesCorrelationCmd.AddCommand(rulesCorrelationCreateCmd)
	rulesCorrelationCmd.AddCommand(rulesCorrelationDeleteCmd)
	rulesCorrelationCmd.AddCommand(rulesCorrelationEnableCmd)
	rulesCorrelationCmd.AddCommand(rulesCorrelationDisableCmd)

	rulesResponseCmd.AddCommand(rulesResponseListCmd)
	rulesResponseCmd.AddCommand(rulesResponseCreateCmd)
	rulesResponseCmd.AddCommand(rulesResponseDeleteCmd)
	rulesResponseCmd.AddCommand(rulesResponseEnableCmd)
	rulesResponseCmd.AddCommand(rulesResponseDisableCmd)

	rulesCorrelationCreateCmd.Flags().StringP("file", "f", "", "Rule definition file (JSON)")
	rulesResponseCreateCmd.Flags().StringP("file", "f", "", "Rule definition file (JSON)")
	for _, c := range []*cobra.Command{rulesCorrelationCreateCmd, rulesResponseCreateCmd} {
		if err := c.MarkFlagRequired("file"); err != nil {
			panic(fmt.Sprintf("failed to mark file as required: %v", err))
		}
	}
}
