package main

import (
	"fmt"
	"strings"

	"FunnelBot/config"
	"FunnelBot/funnel"
	"FunnelBot/model"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "funnelbot",
		Short:        "Telegram bot that walks users through a question funnel",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start polling Telegram",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBot(envFile)
			},
		},
		newValidateCmd(),
		newFunnelsCmd(),
	)
	return root
}

func newValidateCmd() *cobra.Command {
	var (
		name        string
		file        string
		checkoutURL string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a funnel definition and print its stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(name, file, checkoutURL)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), describe(table))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "funnel", config.DefaultFunnel, "embedded funnel name")
	cmd.Flags().StringVar(&file, "file", "", "funnel definition file, overrides --funnel")
	cmd.Flags().StringVar(&checkoutURL, "checkout-url", config.DefaultCheckoutURL, "checkout link shown on the final screen")
	return cmd
}

func newFunnelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "funnels",
		Short: "List the embedded funnels",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range funnel.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

// describe walks the stages in order and lists the tokens each one accepts.
func describe(t *funnel.Table) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "funnel %s: %d questions\n", t.Name(), t.Len())

	stages := make([]model.Stage, 0, t.Len()+2)
	for i := 0; i < t.Len(); i++ {
		stages = append(stages, model.Question(i))
	}
	stages = append(stages, model.Final, model.Rejected)

	for _, stage := range stages {
		var controls []string
		for _, row := range t.ControlSet(stage) {
			for _, c := range row {
				if c.IsLink() {
					controls = append(controls, fmt.Sprintf("%s -> %s", c.Label, c.URL))
					continue
				}
				controls = append(controls, fmt.Sprintf("%s [%s]", c.Label, c.Token))
			}
		}
		fmt.Fprintf(&sb, "  %-8s %s\n", stage, strings.Join(controls, ", "))
	}
	return sb.String()
}
