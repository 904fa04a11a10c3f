// Package normalizer is the single boundary between raw portal payloads and the
// canonical ReconciliationRecord.
//
// Role-specific list endpoints return slightly different item shapes: flat
// camelCase, snake_case, or the record nested under "reconciliation" next to a
// "recLive" object. Each canonical field is read through a fallback chain that
// covers all of them and ends in a placeholder, so a missing or malformed field
// never aborts the batch.
package normalizer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"golang-reconciliation-portal/internal/fieldmap"
	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/internal/period"
	"golang-reconciliation-portal/pkg/logger"
)

// Fallback chains, tried left to right.
var (
	idPaths           = []string{"reconciliationId", "reconciliation_id", "reconciliation.reconciliationId", "reconciliation.id", "recId", "id"}
	recLiveIDPaths    = []string{"recLiveId", "rec_live_id", "recLive.id", "recLive.recLiveId", "reconciliation.recLiveId", "liveId"}
	statusPaths       = []string{"status", "statusCode", "status_code", "recLive.status", "reconciliation.status"}
	riskPaths         = []string{"riskRating", "risk_rating", "account.riskRating", "reconciliation.riskRating", "risk.rating"}
	deadlineCodePaths = []string{"deadlineCode", "deadline_code", "deadline.code", "reconciliation.deadlineCode", "recLive.deadlineCode"}
	preparerPaths     = []string{"preparerName", "preparer_name", "preparer.name", "preparer.userName", "preparer", "recLive.preparerName"}
	reviewerPaths     = []string{"reviewerName", "reviewer_name", "reviewer.name", "reviewer.userName", "reviewer", "recLive.reviewerName"}
	deadlinePaths     = []string{"deadlineDate", "deadline_date", "deadline", "deadline.date", "dueDate", "due_date", "recLive.deadline"}
	frequencyPaths    = []string{"frequency", "reconciliationFrequency", "reconciliation.frequency", "account.frequency"}
	lockedPaths       = []string{"locked", "isLocked", "is_locked", "recLive.locked"}
	activePaths       = []string{"active", "isActive", "is_active", "account.active"}
	accountNamePaths  = []string{"accountName", "account_name", "account.name", "account.accountName", "reconciliation.accountName"}
	accountTypePaths  = []string{"accountType", "account_type", "account.type", "account.accountType"}
	divisionPaths     = []string{"division", "divisionName", "division_name", "account.division", "entity.division"}
	currencyPaths     = []string{"currencyCode", "currency_code", "currency", "account.currencyCode", "account.currency"}
	balancePaths      = []string{"balance", "glBalance", "gl_balance", "account.balance", "recLive.balance"}
	createdAtPaths    = []string{"createdAt", "created_at", "createdDate", "created_date", "recLive.createdAt"}
	periodPaths       = []string{"currentPeriod", "current_period", "period", "reconciliationPeriod", "recLive.period"}
)

// Config controls normalization.
type Config struct {
	// Now is the clock used for the overdue flag. Defaults to time.Now.
	Now func() time.Time
	// DefaultPeriod is used when an item does not carry its own period.
	DefaultPeriod string
}

// Rejection describes a raw item that could not become a record.
type Rejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Batch is the result of normalizing one list response.
type Batch struct {
	Records  []*models.ReconciliationRecord `json:"records"`
	Rejected []Rejection                    `json:"rejected,omitempty"`
}

// Normalizer builds canonical records from raw list items.
type Normalizer struct {
	config Config
	log    logger.Logger
}

// New creates a Normalizer. A nil logger falls back to the global logger.
func New(config Config, log logger.Logger) *Normalizer {
	if config.Now == nil {
		config.Now = time.Now
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Normalizer{
		config: config,
		log:    log.WithComponent("normalizer"),
	}
}

// Normalize converts every raw item. Items without an id are reported in
// Batch.Rejected and skipped. The overdue flag of the whole batch is computed
// against a single reading of the clock.
func (n *Normalizer) Normalize(items []models.RawRecord) *Batch {
	batch := &Batch{Records: make([]*models.ReconciliationRecord, 0, len(items))}
	today := period.Day(n.config.Now())

	for i, raw := range items {
		record, err := n.normalize(raw, today)
		if err != nil {
			batch.Rejected = append(batch.Rejected, Rejection{Index: i, Reason: err.Error()})
			n.log.WithFields(logger.Fields{"index": i, "reason": err.Error()}).Warn("Skipping reconciliation item")
			continue
		}
		batch.Records = append(batch.Records, record)
	}

	if len(batch.Rejected) > 0 {
		n.log.Infof("Normalized %d reconciliation items, %d rejected", len(batch.Records), len(batch.Rejected))
	}
	return batch
}

// NormalizeOne converts a single raw item.
func (n *Normalizer) NormalizeOne(raw models.RawRecord) (*models.ReconciliationRecord, error) {
	return n.normalize(raw, period.Day(n.config.Now()))
}

func (n *Normalizer) normalize(raw models.RawRecord, today time.Time) (*models.ReconciliationRecord, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty item")
	}

	id, ok := raw.String(idPaths...)
	if !ok {
		return nil, fmt.Errorf("item has no reconciliation id")
	}

	statusCode, _ := raw.String(statusPaths...)
	riskRating, _ := raw.String(riskPaths...)
	deadlineCode, _ := raw.String(deadlineCodePaths...)
	deadline := raw.StringOr(models.Placeholder, deadlinePaths...)

	record := &models.ReconciliationRecord{
		ID:           id,
		Status:       fieldmap.MapStatus(statusCode),
		StatusCode:   statusCode,
		RiskRating:   riskRating,
		DeadlineCode: deadlineCode,
		Priority:     derivePriority(riskRating, deadlineCode),
		PreparerName: raw.StringOr("", preparerPaths...),
		ReviewerName: raw.StringOr("", reviewerPaths...),
		Deadline:     deadline,
		Overdue:      isOverdue(deadline, today),
		Frequency:    fieldmap.MapFrequency(raw.StringOr(models.Placeholder, frequencyPaths...)),
		AccountName:  raw.StringOr(models.Placeholder, accountNamePaths...),
		AccountType:  raw.StringOr(models.Placeholder, accountTypePaths...),
		Division:     raw.StringOr(models.Placeholder, divisionPaths...),
		CurrencyCode: raw.StringOr(models.Placeholder, currencyPaths...),
		CreatedAt:    raw.StringOr(models.Placeholder, createdAtPaths...),
		Period:       raw.StringOr(n.config.DefaultPeriod, periodPaths...),
		Active:       true,
		Balance:      decimal.Zero,
	}

	if v, ok := raw.Int64(recLiveIDPaths...); ok {
		record.RecLiveID = v
	}
	if v, ok := raw.Bool(lockedPaths...); ok {
		record.Locked = v
	}
	if v, ok := raw.Bool(activePaths...); ok {
		record.Active = v
	}
	if v, ok := raw.Decimal(balancePaths...); ok {
		record.Balance = v
	}

	return record, nil
}

// derivePriority prefers the risk text and falls back to the deadline tier.
func derivePriority(riskRating, deadlineCode string) models.Priority {
	if riskRating != "" {
		return fieldmap.ClassifyRisk(riskRating)
	}
	return fieldmap.PriorityFromDeadlineCode(deadlineCode)
}

// isOverdue is true when the deadline day is before today. Unparsable deadlines are never overdue.
func isOverdue(deadline string, today time.Time) bool {
	t, ok := period.ParseDate(deadline)
	if !ok {
		return false
	}
	return t.Before(today)
}
