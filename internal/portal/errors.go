package portal

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/pkg/errors"
)

// ServiceError is a non-successful response from the portal API. Diagnostics
// holds the structured partial-failure report when the payload carries one.
type ServiceError struct {
	Endpoint    string
	StatusCode  int
	Message     string
	Diagnostics models.Diagnostics
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s returned %d", e.Endpoint, e.StatusCode)
}

// AsServiceError extracts a ServiceError from an error chain
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// DiagnosticsOf returns the diagnostics carried anywhere in err's chain.
func DiagnosticsOf(err error) models.Diagnostics {
	if svcErr, ok := AsServiceError(err); ok {
		return svcErr.Diagnostics
	}
	return models.Diagnostics{}
}

var (
	messagePaths          = []string{"message", "error", "detail", "error_message", "errorMessage", "data.message", "error.message"}
	missingSheetsPaths    = []string{"missingSheets", "missing_sheets"}
	validationErrorsPaths = []string{"validationErrors", "validation_errors", "columnErrors", "column_errors"}
	businessErrorsPaths   = []string{"businessErrors", "business_errors"}
	missingColumnsPaths   = []string{"missing", "missingColumns", "missing_columns", "columns"}
	// mixedErrorsPath holds column and business errors in one list.
	mixedErrorsPath  = "errors"
	diagnosticsRoots = []string{"", "details", "data", "errors", "diagnostics"}
)

// decodeFailure builds a ServiceError from an error response body. Bodies that
// are not JSON become the message verbatim.
func decodeFailure(endpoint string, status int, body []byte) *ServiceError {
	svcErr := &ServiceError{Endpoint: endpoint, StatusCode: status}

	raw, ok := decodeObject(body)
	if !ok {
		svcErr.Message = strings.TrimSpace(string(body))
		return svcErr
	}

	svcErr.Message, _ = raw.String(messagePaths...)
	svcErr.Diagnostics = decodeDiagnostics(raw)
	return svcErr
}

// decodeDiagnostics reads the three diagnostic lists from the payload root or
// from one of the nested objects the processor is known to use.
func decodeDiagnostics(raw models.RawRecord) models.Diagnostics {
	var d models.Diagnostics
	for _, root := range diagnosticsRoots {
		obj := raw
		if root != "" {
			nested, ok := raw.Object(root)
			if !ok {
				continue
			}
			obj = nested
		}

		if len(d.MissingSheets) == 0 {
			d.MissingSheets = stringList(firstList(obj, missingSheetsPaths))
		}
		if len(d.ValidationErrors) == 0 {
			d.ValidationErrors = columnErrors(firstList(obj, validationErrorsPaths))
		}
		if len(d.BusinessErrors) == 0 {
			d.BusinessErrors = businessErrors(firstList(obj, businessErrorsPaths))
		}
		if mixed, ok := obj.List(mixedErrorsPath); ok {
			columns, business := splitMixedErrors(mixed)
			if len(d.ValidationErrors) == 0 {
				d.ValidationErrors = columnErrors(columns)
			}
			if len(d.BusinessErrors) == 0 {
				d.BusinessErrors = businessErrors(business)
			}
		}
	}
	return d
}

// splitMixedErrors sorts a generic error list by the keys each item carries.
// Items naming missing columns are column errors, everything else is a
// business error.
func splitMixedErrors(list []interface{}) (columns, business []interface{}) {
	for _, v := range list {
		if obj, ok := v.(map[string]interface{}); ok && hasAnyKey(obj, missingColumnsPaths) {
			columns = append(columns, v)
			continue
		}
		business = append(business, v)
	}
	return columns, business
}

func hasAnyKey(obj map[string]interface{}, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func firstList(raw models.RawRecord, paths []string) []interface{} {
	for _, p := range paths {
		if list, ok := raw.List(p); ok && len(list) > 0 {
			return list
		}
	}
	return nil
}

func stringList(list []interface{}) []string {
	var out []string
	for _, v := range list {
		switch s := v.(type) {
		case string:
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		case map[string]interface{}:
			if name, ok := models.RawRecord(s).String("sheet", "sheetName", "sheet_name", "name"); ok {
				out = append(out, name)
			}
		}
	}
	return out
}

func columnErrors(list []interface{}) []models.ColumnError {
	var out []models.ColumnError
	for _, v := range list {
		obj, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		raw := models.RawRecord(obj)
		entry := models.ColumnError{
			Sheet: raw.StringOr("", "sheet", "sheetName", "sheet_name"),
		}
		for _, p := range missingColumnsPaths {
			if cols, ok := raw.List(p); ok {
				entry.Missing = stringList(cols)
				break
			}
		}
		if entry.Sheet == "" && len(entry.Missing) == 0 {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func businessErrors(list []interface{}) []models.BusinessError {
	var out []models.BusinessError
	for _, v := range list {
		switch item := v.(type) {
		case string:
			out = append(out, models.BusinessError{Error: item})
		case map[string]interface{}:
			raw := models.RawRecord(item)
			out = append(out, models.BusinessError{
				Error:  raw.StringOr("", "error", "message", "description"),
				Sheet:  raw.StringOr("", "sheet", "sheetName", "sheet_name"),
				Cell:   raw.StringOr("", "cell", "cellRef", "cell_ref"),
				Value:  raw.StringOr("", "value"),
				Action: raw.StringOr("", "action", "suggestedAction", "suggested_action"),
			})
		}
	}
	return out
}

// decodeObject decodes a JSON object keeping numbers exact.
func decodeObject(body []byte) (models.RawRecord, bool) {
	var raw models.RawRecord
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, false
	}
	return raw, true
}

// classifyStatus maps a failed response to the portal error taxonomy.
func classifyStatus(endpoint string, status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return errors.SessionError(errors.CodeUnauthorized, endpoint, decodeFailure(endpoint, status, body))
	case http.StatusForbidden:
		return errors.SessionError(errors.CodeForbidden, endpoint, decodeFailure(endpoint, status, body))
	}

	svcErr := decodeFailure(endpoint, status, body)
	code := errors.CodeServiceError
	if status == http.StatusNotFound {
		code = errors.CodeNotFound
	}
	detail := svcErr.Message
	if code == errors.CodeNotFound {
		detail = endpoint
	}
	return errors.ServiceError(code, endpoint, status, detail, svcErr)
}
