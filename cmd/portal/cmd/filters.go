package cmd

import (
	"strings"
	"time"

	"golang-reconciliation-portal/internal/fieldmap"
	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/period"
	"golang-reconciliation-portal/pkg/errors"
)

// filterFlags are the list filters as typed on the command line.
type filterFlags struct {
	search       string
	statuses     []string
	priorities   []string
	risks        []string
	frequencies  []string
	accountTypes []string
	from         string
	to           string
	dateField    string
	month        string
}

var knownStatuses = []models.Status{
	models.StatusPrepare, models.StatusReview, models.StatusCompleted, models.StatusRejected,
}

var knownPriorities = []models.Priority{
	models.PriorityHigh, models.PriorityMedium, models.PriorityLow,
}

// criteria turns the flags into filter criteria. Search text is left out; it
// goes through the view's debounced search.
func (f filterFlags) criteria() (models.FilterCriteria, error) {
	var c models.FilterCriteria

	for _, s := range splitValues(f.statuses) {
		c.StatusIn = append(c.StatusIn, parseStatus(s))
	}

	for _, p := range splitValues(f.priorities) {
		priority, err := parsePriority("priority", p)
		if err != nil {
			return c, err
		}
		c.PriorityIn = append(c.PriorityIn, priority)
	}
	for _, r := range splitValues(f.risks) {
		priority, err := parsePriority("risk", r)
		if err != nil {
			return c, err
		}
		c.RiskLevelIn = append(c.RiskLevelIn, priority)
	}

	for _, fr := range splitValues(f.frequencies) {
		c.FrequencyIn = append(c.FrequencyIn, fieldmap.MapFrequency(fr))
	}
	c.AccountTypeIn = splitValues(f.accountTypes)

	if f.from != "" || f.to != "" {
		rng, err := dateRange(f.from, f.to)
		if err != nil {
			return c, err
		}
		c.DateRange = rng
		switch strings.ToLower(strings.TrimSpace(f.dateField)) {
		case "", "deadline":
			c.DateField = models.DateFieldDeadline
		case "created", "createdat":
			c.DateField = models.DateFieldCreatedAt
		default:
			return c, errors.ValidationError(errors.CodeInvalidValue, "date-field", f.dateField).
				WithSuggestion("Use deadline or created")
		}
	}

	if f.month != "" {
		key := period.MonthKey(f.month)
		if key == "" {
			return c, errors.ValidationError(errors.CodeInvalidValue, "month", f.month).
				WithSuggestion("Use a month such as 2025-08 or Aug 2025")
		}
		c.PeriodKey = key
	}
	return c, nil
}

// parseStatus accepts display names and backend codes. Unknown values are
// matched as-is.
func parseStatus(s string) models.Status {
	for _, known := range knownStatuses {
		if strings.EqualFold(s, known.String()) {
			return known
		}
	}
	return fieldmap.MapStatus(s)
}

func parsePriority(field, s string) (models.Priority, error) {
	for _, known := range knownPriorities {
		if strings.EqualFold(s, known.String()) {
			return known, nil
		}
	}
	return "", errors.ValidationError(errors.CodeInvalidValue, field, s).
		WithSuggestion("Use High, Medium or Low")
}

// openEnd closes a range given only a start date.
var openEnd = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

func dateRange(from, to string) (*models.DateRange, error) {
	rng := models.DateRange{End: openEnd}
	if from != "" {
		start, ok := period.ParseDate(from)
		if !ok {
			return nil, errors.ValidationError(errors.CodeInvalidValue, "from", from).
				WithSuggestion("Use YYYY-MM-DD")
		}
		rng.Start = start
	}
	if to != "" {
		end, ok := period.ParseDate(to)
		if !ok {
			return nil, errors.ValidationError(errors.CodeInvalidValue, "to", to).
				WithSuggestion("Use YYYY-MM-DD")
		}
		rng.End = end
	}
	if rng.Start.After(rng.End) {
		return nil, errors.ValidationError(errors.CodeInvalidValue, "from", from).
			WithSuggestion("The start date cannot be after the end date")
	}
	return &rng, nil
}

// splitValues flattens repeated and comma-separated flag values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
