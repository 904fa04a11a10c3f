// Package reporter renders reconciliation views for the portal CLI.
//
// Supported output formats:
//   - Console: aligned table for terminal display
//   - JSON: structured data for scripts
//   - CSV: comma-separated rows for spreadsheet tools
//   - XLSX: an Excel workbook of the visible page
//
// Record pages render in every format. Ingestion diagnostics render as console,
// JSON or CSV; commentary threads and period information as console or JSON.
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatCSV})
//	err = generator.GeneratePage(&reporter.PageReport{Page: controller.View()}, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/xuri/excelize/v2"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/normalizer"
	"golang-reconciliation-portal/internal/period"
	"golang-reconciliation-portal/internal/query"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// ParseFormat reads a format name case-insensitively.
func ParseFormat(name string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(name)))
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format: %s", name)
	}
	return f, nil
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Console formatting options
	TableMaxWidth   int  `json:"table_max_width"`
	IncludeRejected bool `json:"include_rejected"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`

	// XLSX options
	SheetName string `json:"sheet_name"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:          FormatConsole,
		TableMaxWidth:   160,
		IncludeRejected: true,
		CSVDelimiter:    ',',
		CSVHeaders:      true,
		SheetName:       "Reconciliations",
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.TableMaxWidth < 50 {
		return fmt.Errorf("table max width must be at least 50 characters, got %d", c.TableMaxWidth)
	}
	return nil
}

// ReportGenerator renders pages, diagnostics and commentary
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if config.CSVDelimiter == 0 {
		config.CSVDelimiter = ','
	}
	if config.SheetName == "" {
		config.SheetName = "Reconciliations"
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// PageReport is one visible page of a view with the context it was built in.
type PageReport struct {
	Page        query.Page             `json:"page"`
	Period      string                 `json:"period,omitempty"`
	Sort        query.SortState        `json:"sort"`
	Rejected    []normalizer.Rejection `json:"rejected,omitempty"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// column is one field of the record table.
type column struct {
	header string
	value  func(r *models.ReconciliationRecord) string
}

var recordColumns = []column{
	{"ID", func(r *models.ReconciliationRecord) string { return r.ID }},
	{"Account", func(r *models.ReconciliationRecord) string { return r.AccountName }},
	{"Type", func(r *models.ReconciliationRecord) string { return r.AccountType }},
	{"Status", func(r *models.ReconciliationRecord) string { return r.Status.String() }},
	{"Priority", func(r *models.ReconciliationRecord) string { return r.Priority.String() }},
	{"Risk", func(r *models.ReconciliationRecord) string { return r.RiskRating }},
	{"Deadline", func(r *models.ReconciliationRecord) string { return r.Deadline }},
	{"Overdue", func(r *models.ReconciliationRecord) string { return yesNo(r.Overdue) }},
	{"Preparer", func(r *models.ReconciliationRecord) string { return r.PreparerName }},
	{"Reviewer", func(r *models.ReconciliationRecord) string { return r.ReviewerName }},
	{"Frequency", func(r *models.ReconciliationRecord) string { return r.Frequency.String() }},
	{"Currency", func(r *models.ReconciliationRecord) string { return r.CurrencyCode }},
	{"Balance", func(r *models.ReconciliationRecord) string { return r.Balance.StringFixed(2) }},
}

// GeneratePage writes a record page in the configured format.
func (rg *ReportGenerator) GeneratePage(report *PageReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("page report cannot be nil")
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsolePage(report, writer)
	case FormatJSON:
		return writeJSON(writer, report)
	case FormatCSV:
		return rg.generateCSVPage(report, writer)
	case FormatXLSX:
		return rg.generateXLSXPage(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsolePage(report *PageReport, writer io.Writer) error {
	page := report.Page

	fmt.Fprintf(writer, "RECONCILIATIONS")
	if report.Period != "" {
		fmt.Fprintf(writer, " - %s", period.ToDisplay(report.Period))
	}
	fmt.Fprintf(writer, "\n")
	fmt.Fprintf(writer, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	if report.Sort.Field != query.SortNone {
		fmt.Fprintf(writer, "Sorted by: %s %s\n", report.Sort.Field, report.Sort.Order)
	}
	fmt.Fprintf(writer, "\n")

	if page.Total == 0 {
		fmt.Fprintf(writer, "No reconciliations match the current filters.\n")
	} else {
		tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
		cellWidth := rg.cellWidth()

		headers := make([]string, len(recordColumns))
		for i, c := range recordColumns {
			headers[i] = c.header
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))

		for _, r := range page.Items {
			cells := make([]string, len(recordColumns))
			for i, c := range recordColumns {
				cells[i] = truncate(c.value(r), cellWidth)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("failed to write table: %w", err)
		}
		fmt.Fprintf(writer, "\nShowing %d-%d of %d (page %d of %d)\n",
			page.Start+1, page.End, page.Total, page.Page, page.TotalPages)
	}

	if rg.config.IncludeRejected && len(report.Rejected) > 0 {
		fmt.Fprintf(writer, "\n=== SKIPPED ITEMS (%d) ===\n", len(report.Rejected))
		for _, rej := range report.Rejected {
			fmt.Fprintf(writer, "  - item %d: %s\n", rej.Index, rej.Reason)
		}
	}
	return nil
}

func (rg *ReportGenerator) generateCSVPage(report *PageReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		headers := make([]string, len(recordColumns))
		for i, c := range recordColumns {
			headers[i] = c.header
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, r := range report.Page.Items {
		row := make([]string, len(recordColumns))
		for i, c := range recordColumns {
			row[i] = c.value(r)
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.ID, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (rg *ReportGenerator) generateXLSXPage(report *PageReport, writer io.Writer) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := rg.config.SheetName
	if err := book.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := make([]interface{}, len(recordColumns))
	for i, c := range recordColumns {
		headers[i] = c.header
	}
	if err := book.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(recordColumns), 1)
	if err != nil {
		return err
	}
	if err := book.SetCellStyle(sheet, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	balanceCol := len(recordColumns) - 1
	for i, r := range report.Page.Items {
		row := make([]interface{}, len(recordColumns))
		for j, c := range recordColumns {
			row[j] = c.value(r)
		}
		row[balanceCol] = r.Balance.InexactFloat64()

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.ID, err)
		}
	}

	if err := book.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// GenerateDiagnostics writes the outcome of an upload job.
func (rg *ReportGenerator) GenerateDiagnostics(job *models.DocumentUploadJob, writer io.Writer) error {
	if job == nil {
		return fmt.Errorf("upload job cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleDiagnostics(job, writer)
	case FormatJSON:
		return writeJSON(writer, job)
	case FormatCSV:
		return rg.generateCSVDiagnostics(job, writer)
	default:
		return fmt.Errorf("unsupported output format for diagnostics: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleDiagnostics(job *models.DocumentUploadJob, writer io.Writer) error {
	fmt.Fprintf(writer, "DOCUMENT UPLOAD\n")
	fmt.Fprintf(writer, "File:           %s\n", job.FileName)
	fmt.Fprintf(writer, "Reconciliation: %s\n", job.RecordID)
	fmt.Fprintf(writer, "Result:         %s\n", job.Phase)
	if job.Phase == models.PhaseFailed {
		fmt.Fprintf(writer, "Failed during:  %s\n", job.FailedPhase)
	}
	if job.Message != "" {
		fmt.Fprintf(writer, "Message:        %s\n", job.Message)
	}

	d := job.Diagnostics
	if d.IsEmpty() {
		return nil
	}
	fmt.Fprintf(writer, "\n%d issue(s) reported\n", d.Count())

	if len(d.MissingSheets) > 0 {
		fmt.Fprintf(writer, "\n=== MISSING SHEETS ===\n")
		for _, sheet := range d.MissingSheets {
			fmt.Fprintf(writer, "  - %s\n", sheet)
		}
	}

	if len(d.ValidationErrors) > 0 {
		fmt.Fprintf(writer, "\n=== MISSING COLUMNS ===\n")
		for _, ve := range d.ValidationErrors {
			fmt.Fprintf(writer, "  - %s: %s\n", orDash(ve.Sheet), strings.Join(ve.Missing, ", "))
		}
	}

	if len(d.BusinessErrors) > 0 {
		fmt.Fprintf(writer, "\n=== BUSINESS RULE ERRORS ===\n")
		for i, be := range d.BusinessErrors {
			fmt.Fprintf(writer, "  %d. %s", i+1, be.Error)
			if loc := location(be); loc != "" {
				fmt.Fprintf(writer, " [%s]", loc)
			}
			if be.Value != "" {
				fmt.Fprintf(writer, " (value: %s)", be.Value)
			}
			fmt.Fprintf(writer, "\n")
			if be.Action != "" {
				fmt.Fprintf(writer, "     Action: %s\n", be.Action)
			}
		}
	}
	return nil
}

func (rg *ReportGenerator) generateCSVDiagnostics(job *models.DocumentUploadJob, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	var rows [][]string
	if rg.config.CSVHeaders {
		rows = append(rows, []string{"Kind", "Sheet", "Cell", "Value", "Detail", "Action"})
	}
	for _, sheet := range job.Diagnostics.MissingSheets {
		rows = append(rows, []string{"missing_sheet", sheet, "", "", "", ""})
	}
	for _, ve := range job.Diagnostics.ValidationErrors {
		rows = append(rows, []string{"missing_columns", ve.Sheet, "", "", strings.Join(ve.Missing, "; "), ""})
	}
	for _, be := range job.Diagnostics.BusinessErrors {
		rows = append(rows, []string{"business_error", be.Sheet, be.Cell, be.Value, be.Error, be.Action})
	}

	if err := csvWriter.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write diagnostics: %w", err)
	}
	return nil
}

// GenerateComments writes a commentary thread.
func (rg *ReportGenerator) GenerateComments(recordID string, thread []models.CommentaryEntry, writer io.Writer) error {
	switch rg.config.Format {
	case FormatConsole:
		fmt.Fprintf(writer, "COMMENTARY - %s (%d)\n\n", recordID, len(thread))
		if len(thread) == 0 {
			fmt.Fprintf(writer, "No comments yet.\n")
			return nil
		}
		for _, c := range thread {
			when := "-"
			if !c.CreatedAt.IsZero() {
				when = c.CreatedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(writer, "[%s] %s (%s)\n  %s\n", c.CommentID, orDash(c.AuthorName), when, c.Text)
		}
		return nil
	case FormatJSON:
		if thread == nil {
			thread = []models.CommentaryEntry{}
		}
		return writeJSON(writer, map[string]interface{}{"recordId": recordID, "comments": thread})
	default:
		return fmt.Errorf("unsupported output format for commentary: %s", rg.config.Format)
	}
}

// GeneratePeriod writes the current period and its deadlines.
func (rg *ReportGenerator) GeneratePeriod(info *models.PeriodInfo, writer io.Writer) error {
	if info == nil {
		return fmt.Errorf("period info cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		fmt.Fprintf(writer, "Working period:        %s\n", period.ToDisplay(info.WorkingPeriod))
		fmt.Fprintf(writer, "Reconciliation period: %s\n", period.ToDisplay(info.ReconciliationPeriod))
		if len(info.Deadlines) > 0 {
			fmt.Fprintf(writer, "Deadlines:\n")
			for _, code := range sortedKeys(info.Deadlines) {
				fmt.Fprintf(writer, "  %-6s %s\n", code, info.Deadlines[code])
			}
		}
		return nil
	case FormatJSON:
		return writeJSON(writer, info)
	default:
		return fmt.Errorf("unsupported output format for period: %s", rg.config.Format)
	}
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}
	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

// Helper methods

// cellWidth caps a console cell so a full row stays near TableMaxWidth.
func (rg *ReportGenerator) cellWidth() int {
	w := rg.config.TableMaxWidth / len(recordColumns)
	if w < 8 {
		w = 8
	}
	return w
}

func writeJSON(writer io.Writer, v interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func location(be models.BusinessError) string {
	switch {
	case be.Sheet != "" && be.Cell != "":
		return be.Sheet + "!" + be.Cell
	case be.Sheet != "":
		return be.Sheet
	default:
		return be.Cell
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
