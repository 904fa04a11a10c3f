package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-reconciliation-portal/internal/query"
	"golang-reconciliation-portal/internal/reporter"
	"golang-reconciliation-portal/pkg/errors"
)

// Flags for the list command
var (
	listFilters    filterFlags
	listSortField  string
	listSortOrder  string
	listPage       int
	listAll        bool
	listFormat     string
	listOutputFile string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List reconciliations for the current period",
	Long: `List fetches every reconciliation assigned to you for the period, then
filters, sorts and paginates them locally.

Examples:
  # Records awaiting review, most urgent first
  portal list --status Review --sort priority

  # Free-text search over ids, accounts and people
  portal list --search "cash at bank"

  # Overdue high-risk records as a workbook
  portal list --risk High --sort overdue --order desc --all --format xlsx --output risk.xlsx

  # Deadlines in a date range
  portal list --from 2025-09-01 --to 2025-09-15`,
	PreRunE: validateListFlags,
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	flags := listCmd.Flags()
	flags.StringVarP(&listFilters.search, "search", "q", "", "search text matched against ids, accounts and people")
	flags.StringSliceVar(&listFilters.statuses, "status", nil, "statuses to include: Prepare, Review, Completed, Rejected")
	flags.StringSliceVar(&listFilters.priorities, "priority", nil, "priorities to include: High, Medium, Low")
	flags.StringSliceVar(&listFilters.risks, "risk", nil, "risk levels to include: High, Medium, Low")
	flags.StringSliceVar(&listFilters.frequencies, "frequency", nil, "frequencies to include: Monthly, Quarterly, Annual")
	flags.StringSliceVar(&listFilters.accountTypes, "account-type", nil, "account types to include")
	flags.StringVar(&listFilters.from, "from", "", "first day of the date range (YYYY-MM-DD)")
	flags.StringVar(&listFilters.to, "to", "", "last day of the date range (YYYY-MM-DD)")
	flags.StringVar(&listFilters.dateField, "date-field", "deadline", "date the range applies to: deadline or created")
	flags.StringVar(&listFilters.month, "month", "", "only records whose deadline falls in this month")

	flags.StringVarP(&listSortField, "sort", "s", "", "sort field, for example deadline, priority, riskRank, balance")
	flags.StringVar(&listSortOrder, "order", "asc", "sort order: asc or desc")
	flags.IntVarP(&listPage, "page", "p", 1, "page to show")
	flags.Int("page-size", 10, "records per page")
	flags.BoolVar(&listAll, "all", false, "show every matching record on one page")

	flags.StringVarP(&listFormat, "format", "f", "console", "output format: console, json, csv, xlsx")
	flags.StringVarP(&listOutputFile, "output", "o", "", "output file path (default: stdout)")
	flags.String("period", "", "period to list, for example \"Aug 2025\" (default: the portal's current period)")
	flags.String("server-status", "", "status filter applied by the portal before the list is returned")

	viper.BindPFlag("view.page_size", flags.Lookup("page-size"))
	viper.BindPFlag("list.period", flags.Lookup("period"))
	viper.BindPFlag("list.status", flags.Lookup("server-status"))
}

func validateListFlags(cmd *cobra.Command, args []string) error {
	if _, err := reporter.ParseFormat(listFormat); err != nil {
		return errors.ValidationError(errors.CodeInvalidValue, "format", listFormat).
			WithSuggestion("Use one of console, json, csv, xlsx")
	}
	if listFormat == string(reporter.FormatXLSX) && listOutputFile == "" {
		if f, ok := cmd.OutOrStdout().(*os.File); ok && isTerminal(f) {
			return errors.ValidationError(errors.CodeMissingField, "output", "").
				WithSuggestion("Use --output to save the workbook to a file")
		}
	}
	if _, err := query.ParseSortField(listSortField); err != nil {
		return errors.ValidationError(errors.CodeInvalidValue, "sort", listSortField).
			WithSuggestion("Sortable fields include id, accountName, status, deadline, priority, riskRank, balance")
	}
	if _, err := query.ParseSortOrder(listSortOrder); err != nil {
		return errors.ValidationError(errors.CodeInvalidValue, "order", listSortOrder).
			WithSuggestion("Use asc or desc")
	}
	if listPage < 1 {
		return errors.ValidationError(errors.CodeInvalidValue, "page", listPage)
	}
	_, err := listFilters.criteria()
	return err
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	criteria, err := listFilters.criteria()
	if err != nil {
		return err
	}
	field, _ := query.ParseSortField(listSortField)
	order, _ := query.ParseSortOrder(listSortOrder)

	if _, err := a.view.Fetch(ctx); err != nil {
		return err
	}

	a.view.Update(func(s query.State) query.State { return s.SetCriteria(criteria) })
	if listFilters.search != "" {
		a.view.Search(listFilters.search)
		a.view.FlushSearch()
	}
	total := len(a.view.Records())
	page := a.view.Update(func(s query.State) query.State {
		s = s.SetSortOrder(field, order)
		if listAll {
			s = s.SetPageSize(total)
		}
		return s.SetPage(listPage)
	})

	periodName := a.cfg.List.Period
	if periodName == "" {
		if info, err := a.view.ResolvePeriod(ctx); err == nil {
			periodName = info.ReconciliationPeriod
		}
	}

	out, closeOut, err := openOutput(cmd, listOutputFile)
	if err != nil {
		return err
	}
	defer closeOut()

	generator, err := a.reporter(listFormat)
	if err != nil {
		return err
	}
	report := &reporter.PageReport{
		Page:        page,
		Period:      periodName,
		Sort:        a.view.State().Sort,
		Rejected:    a.view.Rejected(),
		GeneratedAt: time.Now(),
	}
	if err := generator.PageSafely(report, out); err != nil {
		return err
	}

	if listOutputFile != "" && viper.GetBool("verbose") {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d of %d records to %s\n", len(page.Items), page.Total, listOutputFile)
	}
	return nil
}

// isTerminal reports whether f is a character device such as a terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
