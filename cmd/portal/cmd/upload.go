package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/pkg/errors"
)

var uploadFormat string

var uploadCmd = &cobra.Command{
	Use:   "upload <reconciliation-id> <workbook>",
	Short: "Upload, process and publish a supporting workbook",
	Long: `Upload sends an Excel workbook to the portal, has it processed and
publishes the result. When a phase fails, the missing sheets, missing columns
and business rule errors reported by the portal are printed.

Example:
  portal upload R-003 august.xlsx`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVarP(&uploadFormat, "format", "f", "console", "diagnostics format: console, json, csv")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	recordID, path := args[0], args[1]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.pipeline.ValidateExtension(path); err != nil {
		return err
	}
	generator, err := a.reporter(uploadFormat)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.ValidationError(errors.CodeInvalidValue, "file", filepath.Base(path)).
			WithContext("path", path).
			WithSuggestion("Check that the workbook exists and is readable")
	}
	defer file.Close()

	if _, err := a.record(ctx, recordID); err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	a.pipeline.OnPhaseChange(func(job models.DocumentUploadJob) {
		if job.Phase.IsActive() {
			fmt.Fprintf(stderr, "%s %s...\n", job.Phase, job.FileName)
		}
	})

	job, runErr := a.pipeline.Run(ctx, recordID, path, file)
	if job != nil {
		if err := generator.DiagnosticsSafely(job, cmd.OutOrStdout()); err != nil {
			a.log.WithError(err).Warn("Could not render upload result")
		}
	}
	return runErr
}
