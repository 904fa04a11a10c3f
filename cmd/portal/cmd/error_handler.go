package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"golang-reconciliation-portal/internal/portal"
	"golang-reconciliation-portal/pkg/errors"
	"golang-reconciliation-portal/pkg/logger"
)

// CLIErrorHandler turns any command error into one user-facing message and an
// exit code.
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
		out:     os.Stderr,
	}
}

// HandleError prints err and returns the process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	if portalErr, ok := errors.AsPortalError(err); ok {
		return h.handlePortalError(portalErr)
	}
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handlePortalError(err *errors.PortalError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.UserMessage())

	if h.verbose {
		if len(err.Context) > 0 {
			fmt.Fprintf(h.out, "\nContext:\n")
			keys := make([]string, 0, len(err.Context))
			for key := range err.Context {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
			}
		}
		if svcErr, ok := portal.AsServiceError(err); ok {
			fmt.Fprintf(h.out, "\nResponse: %d %s\n", svcErr.StatusCode, truncateBody(svcErr.Message))
			if n := svcErr.Diagnostics.Count(); n > 0 {
				fmt.Fprintf(h.out, "Diagnostics: %d issue(s)\n", n)
			}
		}
		if err.Cause != nil {
			fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
		}
		fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	switch {
	case h.isFileNotFoundError(err):
		fmt.Fprintf(h.out, "Error: file not found (suggestion: check the file path)\n")
		return 2
	case h.isPermissionError(err):
		fmt.Fprintf(h.out, "Error: permission denied (suggestion: check file permissions)\n")
		return 2
	case h.isDiskFullError(err):
		fmt.Fprintf(h.out, "Error: insufficient disk space (suggestion: free up disk space and try again)\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryValidation:
		return `Validation error help:
• Nothing was sent to the portal
• Rejections need --comment
• Only records in Review can be approved or rejected
• Uploads must be .xls or .xlsx workbooks`

	case errors.CategorySession:
		return `Session error help:
• Sign in to the portal again and update PORTAL_API_TOKEN
• Check that user.role matches your portal role`

	case errors.CategoryNetwork:
		return `Network error help:
• Check api.base_url and your network connection
• Increase api.timeout for slow connections`

	case errors.CategoryService, errors.CategoryIngestion:
		return `Portal error help:
• Fix the reported issues and retry
• Run with --verbose to see the portal's response`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check the config file passed with --config
• Check PORTAL_* environment variables and the .env file`

	default:
		return `For more help:
• Use 'portal --help' for general help
• Use 'portal <command> --help' for command-specific help`
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if err == syscall.ENOSPC {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}

func truncateBody(body string) string {
	const limit = 500
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "..."
}
