package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-reconciliation-portal/cmd/portal/config"
	"golang-reconciliation-portal/internal/controller"
	"golang-reconciliation-portal/internal/ingestion"
	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/portal"
	"golang-reconciliation-portal/internal/reporter"
	"golang-reconciliation-portal/internal/workflow"
	"golang-reconciliation-portal/pkg/errors"
	"golang-reconciliation-portal/pkg/logger"
)

// app is the component graph of one CLI invocation.
type app struct {
	cfg      *config.AppConfig
	log      logger.Logger
	client   *portal.Client
	view     *controller.Controller
	machine  *workflow.Machine
	pipeline *ingestion.Pipeline
}

func newApp() (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.LoggerConfig(viper.GetBool("verbose")))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", cfg.Log, err)
	}
	logger.SetGlobalLogger(log)

	client, err := portal.New(cfg.ClientConfig(), log)
	if err != nil {
		return nil, err
	}

	view := controller.New(client, cfg.ControllerConfig(), log)
	return &app{
		cfg:      cfg,
		log:      log,
		client:   client,
		view:     view,
		machine:  workflow.NewMachine(client, view, cfg.WorkflowConfig(""), log),
		pipeline: ingestion.NewPipeline(client, view, cfg.IngestionConfig(), log),
	}, nil
}

// close releases the view's pending work.
func (a *app) close() {
	a.view.Close()
}

// withPeriod rebuilds the workflow machine once the portal's period is known,
// so records without a period are submitted against it.
func (a *app) withPeriod(ctx context.Context) {
	if a.cfg.List.Period != "" {
		return
	}
	info, err := a.view.ResolvePeriod(ctx)
	if err != nil {
		a.log.WithError(err).Debug("Current period unavailable for status updates")
		return
	}
	current := info.ReconciliationPeriod
	if current == "" {
		current = info.WorkingPeriod
	}
	a.machine = workflow.NewMachine(a.client, a.view, a.cfg.WorkflowConfig(current), a.log)
}

// record loads the list and returns the record with the given id.
func (a *app) record(ctx context.Context, id string) (*models.ReconciliationRecord, error) {
	if _, err := a.view.Fetch(ctx); err != nil {
		return nil, err
	}
	record, ok := a.view.Find(id)
	if !ok {
		return nil, errors.ServiceError(errors.CodeNotFound, "GET /reconciliations", 404, "reconciliation "+id, nil).
			WithSuggestion("Run 'portal list' to see the reconciliations available to you")
	}
	return record, nil
}

// reporter builds a safe report generator for format.
func (a *app) reporter(format string) (*reporter.SafeReportGenerator, error) {
	reportConfig, err := config.CreateReportConfig(format)
	if err != nil {
		return nil, err
	}
	return reporter.NewSafeReportGenerator(reportConfig, a.log)
}

// openOutput creates path for writing, or returns the command's stdout when
// path is empty. The returned func closes the file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.InternalError(errors.CodeUnexpectedError, "open output", err).
			WithContext("path", path).
			WithSuggestion("Check that the output directory exists and is writable")
	}
	return f, func() { f.Close() }, nil
}
