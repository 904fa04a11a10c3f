package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"golang-reconciliation-portal/internal/models"
)

func rec(id string, opts ...func(*models.ReconciliationRecord)) *models.ReconciliationRecord {
	r := &models.ReconciliationRecord{
		ID:          id,
		Status:      models.StatusPrepare,
		Priority:    models.PriorityLow,
		Frequency:   models.FrequencyMonthly,
		AccountName: models.Placeholder,
		AccountType: "Asset",
		Deadline:    models.Placeholder,
		CreatedAt:   models.Placeholder,
		Active:      true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func withStatus(s models.Status) func(*models.ReconciliationRecord) {
	return func(r *models.ReconciliationRecord) { r.Status = s }
}

func withPreparer(name string) func(*models.ReconciliationRecord) {
	return func(r *models.ReconciliationRecord) { r.PreparerName = name }
}

func withDeadline(d string) func(*models.ReconciliationRecord) {
	return func(r *models.ReconciliationRecord) { r.Deadline = d }
}

func withRisk(text string) func(*models.ReconciliationRecord) {
	return func(r *models.ReconciliationRecord) { r.RiskRating = text }
}

func ids(records []*models.ReconciliationRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func assertIDs(t *testing.T, got []*models.ReconciliationRecord, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if fmt.Sprint(gotIDs) != fmt.Sprint(want) {
		t.Errorf("got ids %v, want %v", gotIDs, want)
	}
}

func sampleRecords() []*models.ReconciliationRecord {
	return []*models.ReconciliationRecord{
		rec("R1", withStatus(models.StatusReview), withPreparer("alex.kim"), withDeadline("2025-01-10"), withRisk("6. Medium Risk, High Impact")),
		rec("R2", withStatus(models.StatusPrepare), withPreparer("maria.p"), withDeadline("2025-02-15"), withRisk("2. Low Risk, Medium Impact")),
		rec("R3", withStatus(models.StatusCompleted), withPreparer("sam"), withDeadline("bad date"), withRisk("4. Medium Risk, Low Impact")),
		rec("R4", withStatus(models.StatusReview), withPreparer("lee"), withDeadline("2025-01-31"), withRisk("")),
		rec("R5", withStatus("ON_HOLD"), withPreparer("Alexandra"), withDeadline("01-Feb-25"), withRisk("Unrated")),
	}
}

func TestFilter_EmptyCriteriaIsIdentity(t *testing.T) {
	records := sampleRecords()
	got := Filter(records, models.FilterCriteria{})

	if len(got) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(got))
	}
	for i := range records {
		if got[i] != records[i] {
			t.Errorf("position %d changed: got %s, want %s", i, got[i].ID, records[i].ID)
		}
	}

	got[0] = nil
	if records[0] == nil {
		t.Error("filter result must not alias the input collection")
	}
}

func TestFilter_SearchScenario(t *testing.T) {
	records := []*models.ReconciliationRecord{
		rec("R1", withPreparer("alex.kim")),
		rec("R2", withPreparer("maria.p")),
	}
	assertIDs(t, Filter(records, models.FilterCriteria{SearchText: "alex"}), "R1")
}

func TestFilter_Search(t *testing.T) {
	records := sampleRecords()
	records[1].ReviewerName = "ALEX.KIM"
	records[3].AccountName = "Été Clearing"

	tests := []struct {
		name   string
		needle string
		want   []string
	}{
		{"case insensitive across fields", "  Alex ", []string{"R1", "R2", "R5"}},
		{"id", "r4", []string{"R4"}},
		{"account name folded", "ÉTÉ", []string{"R4"}},
		{"frequency", "monthly", []string{"R1", "R2", "R3", "R4", "R5"}},
		{"blank needle matches all", "   ", []string{"R1", "R2", "R3", "R4", "R5"}},
		{"no match", "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertIDs(t, Filter(records, models.FilterCriteria{SearchText: tt.needle}), tt.want...)
		})
	}
}

func TestFilter_CustomSearchFields(t *testing.T) {
	records := sampleRecords()
	records[0].Division = "Treasury"

	engine := NewFilterEngine(NewSearchMatcher(SearchDivision))
	assertIDs(t, engine.Filter(records, models.FilterCriteria{SearchText: "treas"}), "R1")
	assertIDs(t, engine.Filter(records, models.FilterCriteria{SearchText: "alex"}))
}

func TestFilter_StatusSoundAndComplete(t *testing.T) {
	records := sampleRecords()
	for _, status := range []models.Status{models.StatusReview, models.StatusPrepare, "ON_HOLD", models.StatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			got := Filter(records, models.FilterCriteria{StatusIn: []models.Status{status}})
			for _, r := range got {
				if r.Status != status {
					t.Errorf("record %s has status %s, want %s", r.ID, r.Status, status)
				}
			}
			want := 0
			for _, r := range records {
				if r.Status == status {
					want++
				}
			}
			if len(got) != want {
				t.Errorf("expected %d records with status %s, got %d", want, status, len(got))
			}
		})
	}
}

func TestFilter_SetCriteriaCompose(t *testing.T) {
	records := sampleRecords()
	records[1].AccountType = "Liability"
	records[2].Frequency = models.FrequencyQuarterly
	records[3].Priority = models.PriorityHigh

	tests := []struct {
		name     string
		criteria models.FilterCriteria
		want     []string
	}{
		{
			name:     "status and priority",
			criteria: models.FilterCriteria{StatusIn: []models.Status{models.StatusReview}, PriorityIn: []models.Priority{models.PriorityHigh}},
			want:     []string{"R4"},
		},
		{
			name:     "frequency",
			criteria: models.FilterCriteria{FrequencyIn: []models.Frequency{models.FrequencyQuarterly}},
			want:     []string{"R3"},
		},
		{
			name:     "account type case insensitive",
			criteria: models.FilterCriteria{AccountTypeIn: []string{"liability"}},
			want:     []string{"R2"},
		},
		{
			name:     "search and status",
			criteria: models.FilterCriteria{SearchText: "alex", StatusIn: []models.Status{"ON_HOLD"}},
			want:     []string{"R5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertIDs(t, Filter(records, tt.criteria), tt.want...)
		})
	}
}

func TestFilter_RiskLevelReclassifiesRawText(t *testing.T) {
	records := sampleRecords()
	// stored priority disagrees with the risk text; filtering must follow the text
	records[0].Priority = models.PriorityLow

	assertIDs(t, Filter(records, models.FilterCriteria{RiskLevelIn: []models.Priority{models.PriorityHigh}}), "R1")
	assertIDs(t, Filter(records, models.FilterCriteria{RiskLevelIn: []models.Priority{models.PriorityMedium}}), "R3")
	assertIDs(t, Filter(records, models.FilterCriteria{RiskLevelIn: []models.Priority{models.PriorityLow}}), "R2", "R4", "R5")
}

func TestFilter_DateRange(t *testing.T) {
	records := sampleRecords()
	records[0].CreatedAt = "2025-03-01T12:00:00Z"

	january := &models.DateRange{
		Start: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	assertIDs(t, Filter(records, models.FilterCriteria{DateRange: january}), "R1", "R4")

	march := &models.DateRange{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	assertIDs(t, Filter(records, models.FilterCriteria{DateRange: march, DateField: models.DateFieldCreatedAt}), "R1")
}

func TestFilter_PeriodKey(t *testing.T) {
	records := sampleRecords()
	assertIDs(t, Filter(records, models.FilterCriteria{PeriodKey: "2025-02"}), "R2", "R5")
	assertIDs(t, Filter(records, models.FilterCriteria{PeriodKey: "2024-12"}))
}

func TestSort_TextAndStability(t *testing.T) {
	records := []*models.ReconciliationRecord{
		rec("R1", withPreparer("bob")),
		rec("R2", withPreparer(" Alice")),
		rec("R3", withPreparer("BOB")),
		rec("R4", withPreparer("alice")),
		rec("R5", withPreparer("")),
	}

	asc := Sort(records, SortPreparer, Ascending)
	assertIDs(t, asc, "R5", "R2", "R4", "R1", "R3")

	desc := Sort(records, SortPreparer, Descending)
	assertIDs(t, desc, "R1", "R3", "R2", "R4", "R5")

	again := Sort(asc, SortPreparer, Ascending)
	assertIDs(t, again, ids(asc)...)

	assertIDs(t, records, "R1", "R2", "R3", "R4", "R5")
}

func TestSort_DateUnparsableIsLowest(t *testing.T) {
	records := sampleRecords()
	assertIDs(t, Sort(records, SortDeadline, Ascending), "R3", "R1", "R4", "R5", "R2")
	assertIDs(t, Sort(records, SortDeadline, Descending), "R2", "R5", "R4", "R1", "R3")
}

func TestSort_RiskRankMissingAlwaysLast(t *testing.T) {
	records := sampleRecords()
	assertIDs(t, Sort(records, SortRiskRank, Ascending), "R2", "R3", "R1", "R4", "R5")
	assertIDs(t, Sort(records, SortRiskRank, Descending), "R1", "R3", "R2", "R4", "R5")
}

func TestSort_PriorityBooleanDecimal(t *testing.T) {
	records := []*models.ReconciliationRecord{
		rec("R1", func(r *models.ReconciliationRecord) { r.Priority = models.PriorityLow; r.Locked = true; r.Balance = decimal.NewFromInt(50) }),
		rec("R2", func(r *models.ReconciliationRecord) { r.Priority = "Urgent"; r.Balance = decimal.NewFromInt(-10) }),
		rec("R3", func(r *models.ReconciliationRecord) { r.Priority = models.PriorityHigh; r.Locked = true; r.Balance = decimal.RequireFromString("50.00") }),
		rec("R4", func(r *models.ReconciliationRecord) { r.Priority = models.PriorityMedium; r.Balance = decimal.NewFromInt(7) }),
	}

	assertIDs(t, Sort(records, SortPriority, Ascending), "R3", "R4", "R1", "R2")
	assertIDs(t, Sort(records, SortLocked, Ascending), "R2", "R4", "R1", "R3")
	assertIDs(t, Sort(records, SortLocked, Descending), "R1", "R3", "R2", "R4")
	assertIDs(t, Sort(records, SortBalance, Ascending), "R2", "R4", "R1", "R3")
}

func TestSort_UnknownFieldAndPassThroughStatus(t *testing.T) {
	records := sampleRecords()
	assertIDs(t, Sort(records, "nonsense", Ascending), "R1", "R2", "R3", "R4", "R5")
	assertIDs(t, Sort(records, SortStatus, Ascending), "R3", "R5", "R2", "R1", "R4")
}

func TestSortState_Toggle(t *testing.T) {
	s := SortState{}
	s = s.Toggle(SortDeadline)
	if s.Field != SortDeadline || s.Order != Ascending {
		t.Fatalf("expected deadline asc, got %+v", s)
	}
	s = s.Toggle(SortDeadline)
	if s.Order != Descending {
		t.Fatalf("expected toggle to flip to desc, got %+v", s)
	}
	s = s.Toggle(SortAccountName)
	if s.Field != SortAccountName || s.Order != Ascending {
		t.Fatalf("expected new field to reset to asc, got %+v", s)
	}
}

func TestParseSortFieldAndOrder(t *testing.T) {
	if f, err := ParseSortField("DEADLINE"); err != nil || f != SortDeadline {
		t.Errorf("expected deadline, got %q (%v)", f, err)
	}
	if _, err := ParseSortField("colour"); err == nil {
		t.Error("expected error for unknown field")
	}
	if o, err := ParseSortOrder("Desc"); err != nil || o != Descending {
		t.Errorf("expected desc, got %q (%v)", o, err)
	}
	if _, err := ParseSortOrder("sideways"); err == nil {
		t.Error("expected error for unknown order")
	}
}

func makeRecords(n int) []*models.ReconciliationRecord {
	records := make([]*models.ReconciliationRecord, n)
	for i := range records {
		records[i] = rec(fmt.Sprintf("R%02d", i+1))
	}
	return records
}

func TestPaginate_Scenario(t *testing.T) {
	page := Paginate(makeRecords(23), 3, 10)

	if page.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", page.TotalPages)
	}
	if len(page.Items) != 3 || page.Start != 20 || page.End != 23 {
		t.Errorf("expected 3 items [20,23), got %d items [%d,%d)", len(page.Items), page.Start, page.End)
	}
	if page.HasNext() || !page.HasPrevious() {
		t.Errorf("unexpected navigation flags on last page")
	}
}

func TestPaginate_CoversSetExactlyOnce(t *testing.T) {
	for _, total := range []int{0, 1, 9, 10, 11, 23, 100} {
		for _, size := range []int{1, 3, 10, 25} {
			records := makeRecords(total)
			seen := make(map[string]int)
			var rebuilt []string

			first := Paginate(records, 1, size)
			for p := 1; p <= first.TotalPages; p++ {
				for _, r := range Paginate(records, p, size).Items {
					seen[r.ID]++
					rebuilt = append(rebuilt, r.ID)
				}
			}

			if len(rebuilt) != total {
				t.Errorf("total=%d size=%d: pages hold %d items", total, size, len(rebuilt))
			}
			for id, n := range seen {
				if n != 1 {
					t.Errorf("total=%d size=%d: %s appears %d times", total, size, id, n)
				}
			}
			if fmt.Sprint(rebuilt) != fmt.Sprint(ids(records)) && total > 0 {
				t.Errorf("total=%d size=%d: order not preserved", total, size)
			}
		}
	}
}

func TestPaginate_Clamping(t *testing.T) {
	records := makeRecords(23)

	tests := []struct {
		name     string
		page     int
		size     int
		wantPage int
		wantSize int
		start    int
		end      int
	}{
		{"beyond last page", 9, 10, 3, 10, 20, 23},
		{"zero page", 0, 10, 1, 10, 0, 10},
		{"negative page", -4, 10, 1, 10, 0, 10},
		{"non-positive size", 2, 0, 2, 10, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(records, tt.page, tt.size)
			if p.Page != tt.wantPage || p.PageSize != tt.wantSize || p.Start != tt.start || p.End != tt.end {
				t.Errorf("got page=%d size=%d [%d,%d), want page=%d size=%d [%d,%d)",
					p.Page, p.PageSize, p.Start, p.End, tt.wantPage, tt.wantSize, tt.start, tt.end)
			}
		})
	}

	empty := Paginate(nil, 5, 10)
	if empty.TotalPages != 1 || empty.Page != 1 || empty.Start != 0 || empty.End != 0 || len(empty.Items) != 0 {
		t.Errorf("unexpected empty page %+v", empty)
	}
}

func TestState_TransitionsResetPage(t *testing.T) {
	s := NewState(10).SetPage(3)

	if got := s.SetCriteria(models.FilterCriteria{StatusIn: []models.Status{models.StatusReview}}); got.Page != 1 {
		t.Errorf("SetCriteria should reset page, got %d", got.Page)
	}
	if got := s.SetSearch("alex"); got.Page != 1 || got.Criteria.SearchText != "alex" {
		t.Errorf("SetSearch should reset page, got %+v", got)
	}
	if got := s.SetPageSize(25); got.Page != 1 || got.PageSize != 25 {
		t.Errorf("SetPageSize should reset page, got %+v", got)
	}
	if got := s.SetSort(SortDeadline); got.Page != 3 {
		t.Errorf("SetSort should keep the page, got %d", got.Page)
	}
	if s.Page != 3 || s.Criteria.SearchText != "" {
		t.Errorf("setters must not mutate the receiver, got %+v", s)
	}
}

func TestApply_IsDeterministic(t *testing.T) {
	records := sampleRecords()
	state := NewState(2).
		SetCriteria(models.FilterCriteria{StatusIn: []models.Status{models.StatusReview, models.StatusPrepare, "ON_HOLD"}}).
		SetSort(SortDeadline).
		SetSort(SortDeadline).
		SetPage(1)

	first := Apply(records, state)
	second := Apply(records, state)

	assertIDs(t, first.Items, ids(second.Items)...)
	if first.Total != 4 || first.TotalPages != 2 {
		t.Errorf("expected 4 matches over 2 pages, got %d over %d", first.Total, first.TotalPages)
	}
	assertIDs(t, first.Items, "R2", "R5")

	shrunk := Apply(records, state.SetCriteria(models.FilterCriteria{SearchText: "maria"}).SetPage(2))
	if shrunk.Page != 1 || len(shrunk.Items) != 1 {
		t.Errorf("expected a single clamped page, got %+v", shrunk)
	}
}
