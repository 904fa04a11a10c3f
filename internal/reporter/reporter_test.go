package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/normalizer"
	"golang-reconciliation-portal/internal/query"
	"golang-reconciliation-portal/pkg/errors"
	"golang-reconciliation-portal/pkg/logger"
)

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{
			name:        "default config",
			config:      nil,
			expectError: false,
		},
		{
			name:        "valid config",
			config:      DefaultReportConfig(),
			expectError: false,
		},
		{
			name: "invalid format",
			config: &ReportConfig{
				Format:        "invalid",
				TableMaxWidth: 120,
			},
			expectError: true,
		},
		{
			name: "table width too small",
			config: &ReportConfig{
				Format:        FormatConsole,
				TableMaxWidth: 30,
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if generator == nil {
					t.Errorf("expected generator but got nil")
				}
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected OutputFormat
		valid    bool
	}{
		{"console", FormatConsole, true},
		{"JSON", FormatJSON, true},
		{" csv ", FormatCSV, true},
		{"xlsx", FormatXLSX, true},
		{"pdf", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.valid != (err == nil) {
				t.Fatalf("ParseFormat(%q) error = %v, want valid=%v", tt.input, err, tt.valid)
			}
			if got != tt.expected {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestUpdateConfiguration(t *testing.T) {
	generator, err := NewReportGenerator(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := DefaultReportConfig()
	bad.TableMaxWidth = 10
	if err := generator.UpdateConfiguration(bad); err == nil {
		t.Errorf("expected error for invalid configuration")
	}
	if generator.GetConfiguration().TableMaxWidth == 10 {
		t.Errorf("invalid configuration should not be applied")
	}

	good := DefaultReportConfig()
	good.Format = FormatJSON
	if err := generator.UpdateConfiguration(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generator.GetConfiguration().Format != FormatJSON {
		t.Errorf("expected format json, got %s", generator.GetConfiguration().Format)
	}
}

func TestConsolePage(t *testing.T) {
	report := createSamplePageReport()
	generator := newGenerator(t, FormatConsole)

	var buf bytes.Buffer
	if err := generator.GeneratePage(report, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	expected := []string{
		"RECONCILIATIONS - Aug 2025",
		"Sorted by: deadline asc",
		"ID", "Account", "Balance",
		"R-001", "Cash at bank", "1250.50",
		"R-002", "Accruals",
		"Showing 1-2 of 2 (page 1 of 1)",
		"=== SKIPPED ITEMS (1) ===",
		"item 4: missing reconciliation id",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("console output missing %q\n%s", want, output)
		}
	}
}

func TestConsolePage_Empty(t *testing.T) {
	generator := newGenerator(t, FormatConsole)
	report := &PageReport{Page: query.Paginate(nil, 1, 10)}

	var buf bytes.Buffer
	if err := generator.GeneratePage(report, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No reconciliations match the current filters.") {
		t.Errorf("expected empty message, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Showing") {
		t.Errorf("empty page should not print a range")
	}
}

func TestConsolePage_HidesRejectedWhenDisabled(t *testing.T) {
	config := DefaultReportConfig()
	config.IncludeRejected = false
	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GeneratePage(createSamplePageReport(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "SKIPPED ITEMS") {
		t.Errorf("rejected items should be hidden")
	}
}

func TestJSONPage(t *testing.T) {
	generator := newGenerator(t, FormatJSON)

	var buf bytes.Buffer
	if err := generator.GeneratePage(createSamplePageReport(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Page struct {
			Items []struct {
				ID      string `json:"id"`
				Balance string `json:"balance"`
			} `json:"items"`
			Total int `json:"total"`
		} `json:"page"`
		Period   string                 `json:"period"`
		Rejected []normalizer.Rejection `json:"rejected"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded.Page.Total != 2 || len(decoded.Page.Items) != 2 {
		t.Fatalf("expected 2 items, got total=%d items=%d", decoded.Page.Total, len(decoded.Page.Items))
	}
	if decoded.Page.Items[0].Balance != "1250.5" {
		t.Errorf("expected exact balance, got %s", decoded.Page.Items[0].Balance)
	}
	if decoded.Period != "Aug 2025" {
		t.Errorf("expected period Aug 2025, got %s", decoded.Period)
	}
	if len(decoded.Rejected) != 1 {
		t.Errorf("expected 1 rejection, got %d", len(decoded.Rejected))
	}
}

func TestCSVPage(t *testing.T) {
	tests := []struct {
		name      string
		delimiter rune
		headers   bool
		rows      int
	}{
		{"comma with headers", ',', true, 3},
		{"semicolon without headers", ';', false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultReportConfig()
			config.Format = FormatCSV
			config.CSVDelimiter = tt.delimiter
			config.CSVHeaders = tt.headers
			generator, err := NewReportGenerator(config)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var buf bytes.Buffer
			if err := generator.GeneratePage(createSamplePageReport(), &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			reader := csv.NewReader(&buf)
			reader.Comma = tt.delimiter
			rows, err := reader.ReadAll()
			if err != nil {
				t.Fatalf("invalid CSV output: %v", err)
			}
			if len(rows) != tt.rows {
				t.Fatalf("expected %d rows, got %d", tt.rows, len(rows))
			}
			if tt.headers && rows[0][0] != "ID" {
				t.Errorf("expected header row, got %v", rows[0])
			}
			last := rows[len(rows)-1]
			if last[0] != "R-002" || last[len(last)-1] != "-80.00" {
				t.Errorf("unexpected last row: %v", last)
			}
		})
	}
}

func TestXLSXPage(t *testing.T) {
	generator := newGenerator(t, FormatXLSX)

	var buf bytes.Buffer
	if err := generator.GeneratePage(createSamplePageReport(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	book, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows("Reconciliations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "Account" || rows[1][0] != "R-001" {
		t.Errorf("unexpected workbook content: %v", rows)
	}

	balance, err := book.GetCellValue("Reconciliations", "M2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != "1250.5" {
		t.Errorf("expected numeric balance 1250.5, got %q", balance)
	}
}

func TestConsoleDiagnostics(t *testing.T) {
	generator := newGenerator(t, FormatConsole)

	var buf bytes.Buffer
	if err := generator.GenerateDiagnostics(createFailedJob(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	expected := []string{
		"File:           august.xlsx",
		"Result:         FAILED",
		"Failed during:  PROCESSING",
		"3 issue(s) reported",
		"=== MISSING SHEETS ===",
		"  - Summary",
		"=== MISSING COLUMNS ===",
		"  - Detail: Amount, Currency",
		"=== BUSINESS RULE ERRORS ===",
		"1. Balance does not match GL [Detail!C4] (value: 100.00)",
		"Action: Correct the closing balance",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("diagnostics output missing %q\n%s", want, output)
		}
	}
}

func TestConsoleDiagnostics_Succeeded(t *testing.T) {
	generator := newGenerator(t, FormatConsole)
	job := &models.DocumentUploadJob{FileName: "ok.xlsx", RecordID: "R-001", Phase: models.PhaseSucceeded}

	var buf bytes.Buffer
	if err := generator.GenerateDiagnostics(job, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "Failed during") || strings.Contains(buf.String(), "issue(s)") {
		t.Errorf("successful job should not report failures:\n%s", buf.String())
	}
}

func TestCSVDiagnostics(t *testing.T) {
	generator := newGenerator(t, FormatCSV)

	var buf bytes.Buffer
	if err := generator.GenerateDiagnostics(createFailedJob(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV output: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(rows))
	}
	kinds := []string{rows[1][0], rows[2][0], rows[3][0]}
	want := []string{"missing_sheet", "missing_columns", "business_error"}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("row %d kind = %s, want %s", i+1, kinds[i], want[i])
		}
	}
	if rows[2][4] != "Amount; Currency" {
		t.Errorf("unexpected column detail: %q", rows[2][4])
	}
}

func TestComments(t *testing.T) {
	thread := []models.CommentaryEntry{
		{CommentID: "c1", AuthorName: "Maria", Text: "Balance agreed", CreatedAt: time.Date(2025, 8, 3, 9, 30, 0, 0, time.UTC)},
		{CommentID: "c2", Text: "Follow up"},
	}

	t.Run("console", func(t *testing.T) {
		var buf bytes.Buffer
		if err := newGenerator(t, FormatConsole).GenerateComments("R-001", thread, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"COMMENTARY - R-001 (2)", "[c1] Maria (2025-08-03 09:30)", "[c2] - (-)", "Follow up"} {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("comments output missing %q\n%s", want, buf.String())
			}
		}
	})

	t.Run("empty json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := newGenerator(t, FormatJSON).GenerateComments("R-001", nil, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"comments": []`) {
			t.Errorf("expected empty comment array, got %s", buf.String())
		}
	})

	t.Run("csv unsupported", func(t *testing.T) {
		if err := newGenerator(t, FormatCSV).GenerateComments("R-001", thread, &bytes.Buffer{}); err == nil {
			t.Errorf("expected error for csv commentary")
		}
	})
}

func TestPeriod(t *testing.T) {
	info := &models.PeriodInfo{
		WorkingPeriod:        "Sep 2025",
		ReconciliationPeriod: "Aug 2025",
		Deadlines:            map[string]string{"WD5": "2025-09-05", "WD15": "2025-09-19"},
	}

	var buf bytes.Buffer
	if err := newGenerator(t, FormatConsole).GeneratePeriod(info, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Reconciliation period: Aug 2025") {
		t.Errorf("missing reconciliation period:\n%s", output)
	}
	if strings.Index(output, "WD15") > strings.Index(output, "WD5 ") {
		t.Errorf("deadlines should be listed in key order:\n%s", output)
	}
}

func TestSafeReportGenerator_FormatFallback(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatXLSX
	safe, err := NewSafeReportGenerator(config, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := safe.DiagnosticsSafely(createFailedJob(), &buf); err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if !strings.HasPrefix(buf.String(), "NOTE: xlsx output is not available") {
		t.Errorf("expected fallback notice, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "=== MISSING SHEETS ===") {
		t.Errorf("expected console diagnostics after the notice")
	}
}

func TestSafeReportGenerator_Validation(t *testing.T) {
	safe, err := NewSafeReportGenerator(nil, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := safe.PageSafely(nil, &bytes.Buffer{}); !errors.IsValidation(err) {
		t.Errorf("expected validation error for nil page, got %v", err)
	}
	if err := safe.PeriodSafely(&models.PeriodInfo{}, nil); !errors.HasCode(err, errors.CodeMissingField) {
		t.Errorf("expected missing field error for nil writer, got %v", err)
	}
}

func TestSafeReportGenerator_InvalidConfig(t *testing.T) {
	_, err := NewSafeReportGenerator(&ReportConfig{Format: "pdf", TableMaxWidth: 120}, logger.Discard())
	if !errors.HasCode(err, errors.CodeInvalidConfig) {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestSafeReportGenerator_OutputFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.csv")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	file.Close()

	config := DefaultReportConfig()
	config.Format = FormatCSV
	safe, err := NewSafeReportGenerator(config, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := safe.PageSafely(createSamplePageReport(), file); err != nil {
		t.Fatalf("expected backup output, got %v", err)
	}

	backup, err := os.ReadFile(filepath.Join(dir, "page_backup.csv"))
	if err != nil {
		t.Fatalf("backup file not written: %v", err)
	}
	if !strings.Contains(string(backup), "R-001") {
		t.Errorf("backup file missing records:\n%s", backup)
	}
}

func TestGenerateBackupPath(t *testing.T) {
	got := generateBackupPath(filepath.Join("out", "report.xlsx"))
	if want := filepath.Join("out", "report_backup.xlsx"); got != want {
		t.Errorf("generateBackupPath = %s, want %s", got, want)
	}
}

func newGenerator(t *testing.T, format OutputFormat) *ReportGenerator {
	t.Helper()
	config := DefaultReportConfig()
	config.Format = format
	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return generator
}

func createSamplePageReport() *PageReport {
	records := []*models.ReconciliationRecord{
		{
			ID:           "R-001",
			Status:       models.StatusReview,
			Priority:     models.PriorityHigh,
			RiskRating:   "High Risk / High Impact",
			Deadline:     "2025-09-05",
			PreparerName: "Maria",
			ReviewerName: "Alex",
			Frequency:    models.FrequencyMonthly,
			AccountName:  "Cash at bank",
			AccountType:  "Asset",
			CurrencyCode: "EUR",
			Balance:      decimal.RequireFromString("1250.50"),
		},
		{
			ID:           "R-002",
			Status:       models.StatusPrepare,
			Priority:     models.PriorityLow,
			Deadline:     "2025-08-01",
			Overdue:      true,
			Frequency:    models.FrequencyQuarterly,
			AccountName:  "Accruals",
			AccountType:  "Liability",
			CurrencyCode: "EUR",
			Balance:      decimal.RequireFromString("-80"),
		},
	}
	return &PageReport{
		Page:        query.Paginate(records, 1, 10),
		Period:      "Aug 2025",
		Sort:        query.SortState{Field: query.SortDeadline, Order: query.Ascending},
		Rejected:    []normalizer.Rejection{{Index: 4, Reason: "missing reconciliation id"}},
		GeneratedAt: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC),
	}
}

func createFailedJob() *models.DocumentUploadJob {
	return &models.DocumentUploadJob{
		ID:          "job-1",
		RecordID:    "R-001",
		FileName:    "august.xlsx",
		Phase:       models.PhaseFailed,
		FailedPhase: models.PhaseProcessing,
		Message:     "processing rejected the workbook",
		Diagnostics: models.Diagnostics{
			MissingSheets:    []string{"Summary"},
			ValidationErrors: []models.ColumnError{{Sheet: "Detail", Missing: []string{"Amount", "Currency"}}},
			BusinessErrors: []models.BusinessError{{
				Error:  "Balance does not match GL",
				Sheet:  "Detail",
				Cell:   "C4",
				Value:  "100.00",
				Action: "Correct the closing balance",
			}},
		},
	}
}

func BenchmarkGenerateConsolePage(b *testing.B) {
	generator, _ := NewReportGenerator(DefaultReportConfig())
	report := createSamplePageReport()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		generator.GeneratePage(report, &buf)
	}
}
