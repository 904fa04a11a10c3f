// Package fieldmap translates raw portal codes and free-text ratings into the
// values used everywhere else in the engine.
//
// Every function here is total. Unknown input yields a safe default or is
// passed through, so callers never have to handle an error from a mapping.
package fieldmap

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang-reconciliation-portal/internal/models"
)

// RankMissing is the risk rank of a rating without a numeric prefix.
const RankMissing = math.MaxInt

var statusByCode = map[string]models.Status{
	"NOT_STARTED": models.StatusPrepare,
	"IN_PROGRESS": models.StatusPrepare,
	"READY":       models.StatusReview,
	"APPROVED":    models.StatusCompleted,
	"REJECTED":    models.StatusRejected,
}

// MapStatus maps a backend status code to its display status. An empty code is
// a record nobody has started. Unknown codes pass through unchanged.
func MapStatus(code string) models.Status {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return models.StatusPrepare
	}
	if status, ok := statusByCode[strings.ToUpper(trimmed)]; ok {
		return status
	}
	return models.Status(trimmed)
}

// StatusCode returns the backend code sent when requesting a transition.
func StatusCode(target models.TargetStatus) string {
	return strings.ToUpper(strings.TrimSpace(target.String()))
}

// PriorityFromDeadlineCode maps a deadline tier code to a priority.
func PriorityFromDeadlineCode(code string) models.Priority {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "WD5":
		return models.PriorityHigh
	default:
		// WD15 and unknown tiers.
		return models.PriorityLow
	}
}

// riskTable is the single classification table for risk text. Rules are
// checked in order and the first match wins.
var riskTable = []struct {
	needles  []string
	priority models.Priority
}{
	{needles: []string{"high risk", "high impact"}, priority: models.PriorityHigh},
	{needles: []string{"medium risk"}, priority: models.PriorityMedium},
}

// ClassifyRisk derives a priority from a risk-rating text such as
// "6. Medium Risk, High Impact". Text matching no rule is Low.
func ClassifyRisk(text string) models.Priority {
	lowered := strings.ToLower(text)
	for _, rule := range riskTable {
		for _, needle := range rule.needles {
			if strings.Contains(lowered, needle) {
				return rule.priority
			}
		}
	}
	return models.PriorityLow
}

var rankPrefix = regexp.MustCompile(`^\s*(\d+)`)

// RiskRank returns the leading integer of a risk-rating text, or RankMissing.
func RiskRank(text string) int {
	m := rankPrefix.FindStringSubmatch(text)
	if m == nil {
		return RankMissing
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return RankMissing
	}
	return n
}

// MapFrequency normalizes frequency spellings. Unknown values pass through trimmed.
func MapFrequency(raw string) models.Frequency {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "monthly", "month", "m":
		return models.FrequencyMonthly
	case "quarterly", "quarter", "q":
		return models.FrequencyQuarterly
	case "annual", "annually", "yearly", "year", "y":
		return models.FrequencyAnnual
	default:
		return models.Frequency(trimmed)
	}
}

// PriorityRank orders priorities High, Medium, Low, then anything else.
func PriorityRank(p models.Priority) int {
	switch p {
	case models.PriorityHigh:
		return 0
	case models.PriorityMedium:
		return 1
	case models.PriorityLow:
		return 2
	default:
		return 3
	}
}
