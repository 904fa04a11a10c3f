package cmd

import (
	"github.com/spf13/cobra"
)

var periodFormat string

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Show the portal's current working and reconciliation period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		info, err := a.view.ResolvePeriod(cmd.Context())
		if err != nil {
			return err
		}
		generator, err := a.reporter(periodFormat)
		if err != nil {
			return err
		}
		return generator.PeriodSafely(info, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(periodCmd)
	periodCmd.Flags().StringVarP(&periodFormat, "format", "f", "console", "output format: console, json")
}
