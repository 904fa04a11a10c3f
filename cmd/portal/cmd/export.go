package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"golang-reconciliation-portal/internal/portal"
	"golang-reconciliation-portal/pkg/errors"
)

var (
	exportOutput string
	exportPeriod string
	exportStatus string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the portal's reconciliation report",
	Long: `Export downloads the report workbook generated by the portal for the
period and saves it to a file. Use 'portal list --format xlsx' to save the
locally filtered view instead.

Example:
  portal export --period "Aug 2025" --output august-report.xlsx`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file the report is saved to (required)")
	exportCmd.Flags().StringVar(&exportPeriod, "period", "", "period to export (default: the portal's current period)")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "status code filter applied by the portal")
	exportCmd.MarkFlagRequired("output")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	period := exportPeriod
	if period == "" {
		period = a.cfg.List.Period
	}
	if period == "" {
		if info, err := a.view.ResolvePeriod(ctx); err == nil {
			period = info.ReconciliationPeriod
		}
	}

	out, closeOut, err := openOutput(cmd, exportOutput)
	if err != nil {
		return err
	}

	n, err := a.client.Export(ctx, portal.ExportParams{Period: period, Status: exportStatus}, out)
	closeOut()
	if err != nil {
		if removeErr := os.Remove(exportOutput); removeErr != nil && !os.IsNotExist(removeErr) {
			a.log.WithError(removeErr).Warn("Could not remove partial export")
		}
		return errors.WrapIfNeeded(err, errors.CategoryNetwork, errors.CodeConnectionFailed, "export failed")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved report (%d bytes) to %s\n", n, exportOutput)
	return nil
}
