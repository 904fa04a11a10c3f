package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/pkg/errors"
	"golang-reconciliation-portal/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and fallbacks.
// A failure in a non-console format is retried as console output, and a
// failed write to a named file is retried into a sibling backup file.
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// renderFunc renders one report with a specific generator.
type renderFunc func(rg *ReportGenerator, writer io.Writer) error

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report",
			config,
			err,
		).WithSuggestion("Check the output format and table width settings")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// PageSafely renders a record page.
func (srg *SafeReportGenerator) PageSafely(report *PageReport, writer io.Writer) error {
	if report == nil {
		return errors.ValidationError(errors.CodeMissingField, "page", nil).
			WithSuggestion("Load the reconciliation list before rendering it")
	}
	return srg.render("page", writer, func(rg *ReportGenerator, w io.Writer) error {
		return rg.GeneratePage(report, w)
	})
}

// DiagnosticsSafely renders the outcome of an upload job.
func (srg *SafeReportGenerator) DiagnosticsSafely(job *models.DocumentUploadJob, writer io.Writer) error {
	if job == nil {
		return errors.ValidationError(errors.CodeMissingField, "upload job", nil)
	}
	return srg.render("diagnostics", writer, func(rg *ReportGenerator, w io.Writer) error {
		return rg.GenerateDiagnostics(job, w)
	})
}

// CommentsSafely renders a commentary thread.
func (srg *SafeReportGenerator) CommentsSafely(recordID string, thread []models.CommentaryEntry, writer io.Writer) error {
	return srg.render("comments", writer, func(rg *ReportGenerator, w io.Writer) error {
		return rg.GenerateComments(recordID, thread, w)
	})
}

// PeriodSafely renders period information.
func (srg *SafeReportGenerator) PeriodSafely(info *models.PeriodInfo, writer io.Writer) error {
	if info == nil {
		return errors.ValidationError(errors.CodeMissingField, "period", nil)
	}
	return srg.render("period", writer, func(rg *ReportGenerator, w io.Writer) error {
		return rg.GeneratePeriod(info, w)
	})
}

func (srg *SafeReportGenerator) render(kind string, writer io.Writer, fn renderFunc) error {
	if writer == nil {
		return errors.ValidationError(errors.CodeMissingField, "writer", nil).
			WithSuggestion("Provide a valid output writer")
	}

	log := srg.logger.WithFields(logger.Fields{
		"report": kind,
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	})
	log.Debug("Rendering report")

	if err := srg.generateWithFallback(writer, fn); err != nil {
		log.WithError(err).Error("Report generation failed")
		return err
	}
	return nil
}

// generateWithFallback attempts to generate the report with fallback strategies
func (srg *SafeReportGenerator) generateWithFallback(writer io.Writer, fn renderFunc) error {
	err := fn(srg.ReportGenerator, writer)
	if err == nil {
		return nil
	}

	srg.logger.WithError(err).Warn("Primary report generation failed, attempting fallback")

	if srg.shouldAttemptOutputFallback(err, writer) {
		return srg.generateWithOutputFallback(writer, fn, err)
	}
	if srg.config.Format != FormatConsole {
		return srg.generateWithFormatFallback(writer, fn, err)
	}
	return srg.wrapGenerationError(err)
}

func (srg *SafeReportGenerator) generateWithFormatFallback(writer io.Writer, fn renderFunc, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: %s output is not available for this report, showing console output\n", srg.config.Format)
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fn(fallbackGenerator, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}
	return nil
}

// shouldAttemptOutputFallback reports whether writer is a named file that
// failed for a file system reason.
func (srg *SafeReportGenerator) shouldAttemptOutputFallback(err error, writer io.Writer) bool {
	if file, ok := writer.(*os.File); ok && file.Name() != "" && file != os.Stdout && file != os.Stderr {
		return isFileError(err)
	}
	return false
}

func (srg *SafeReportGenerator) generateWithOutputFallback(writer io.Writer, fn renderFunc, originalErr error) error {
	file := writer.(*os.File)
	originalPath := file.Name()
	backupPath := generateBackupPath(originalPath)

	srg.logger.WithFields(logger.Fields{
		"original_file": originalPath,
		"backup_file":   backupPath,
	}).Info("Attempting output fallback")

	backupFile, err := os.Create(backupPath)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}
	defer backupFile.Close()

	if err := fn(srg.ReportGenerator, backupFile); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_output_fallback",
			fmt.Errorf("both primary and backup output failed: primary=%v, backup=%v", originalErr, err),
		)
	}

	srg.logger.WithField("backup_file", backupPath).Warn("Report saved to backup location")
	fmt.Fprintf(os.Stderr, "Warning: Could not write to %s, report saved to %s\n", originalPath, backupPath)
	return nil
}

// wrapGenerationError wraps generation errors with context
func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if portalErr, ok := errors.AsPortalError(err); ok {
		return portalErr
	}

	return errors.InternalError(
		errors.CodeUnexpectedError,
		"report_generation",
		err,
	).WithSuggestion("Check the output destination and report format settings")
}

// Utility functions

func isFileError(err error) bool {
	return os.IsPermission(err) ||
		os.IsNotExist(err) ||
		os.IsExist(err) ||
		isSpaceError(err) ||
		strings.Contains(err.Error(), os.ErrClosed.Error())
}

func generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

func isSpaceError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "device full")
}
