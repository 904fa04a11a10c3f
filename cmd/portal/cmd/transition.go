package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/pkg/errors"
)

var transitionComment string

var approveCmd = &cobra.Command{
	Use:   "approve <reconciliation-id>",
	Short: "Approve a reconciliation in review",
	Long: `Approve moves a reconciliation in Review to Completed. An optional comment
is posted to its commentary before the status changes.

Example:
  portal approve R-001 --comment "Agreed to bank statement"`,
	Args: cobra.ExactArgs(1),
	RunE: transitionRunner(models.TargetApproved),
}

var rejectCmd = &cobra.Command{
	Use:   "reject <reconciliation-id>",
	Short: "Reject a reconciliation in review",
	Long: `Reject sends a reconciliation in Review back to its preparer. A comment
explaining the rejection is required and is posted before the status changes.

Example:
  portal reject R-002 --comment "Supporting schedule is missing"`,
	Args: cobra.ExactArgs(1),
	RunE: transitionRunner(models.TargetRejected),
}

var submitCmd = &cobra.Command{
	Use:   "submit <reconciliation-id>",
	Short: "Submit a prepared reconciliation for review",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunner(models.TargetReady),
}

func init() {
	for _, c := range []*cobra.Command{approveCmd, rejectCmd, submitCmd} {
		c.Flags().StringVarP(&transitionComment, "comment", "m", "", "comment posted with the status change")
		rootCmd.AddCommand(c)
	}
}

var transitionVerbs = map[models.TargetStatus]string{
	models.TargetApproved: "approved",
	models.TargetRejected: "rejected",
	models.TargetReady:    "submitted for review",
}

func transitionRunner(target models.TargetStatus) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id := strings.TrimSpace(args[0])
		req := models.StatusTransitionRequest{
			RecordID:     id,
			TargetStatus: target,
			Comment:      transitionComment,
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		// A rejection without a comment fails before anything is fetched.
		if err := a.machine.Validate(req); err != nil {
			return err
		}

		record, err := a.record(ctx, id)
		if err != nil {
			return err
		}
		a.withPeriod(ctx)

		err = a.machine.Submit(ctx, record, req)
		if errors.HasCode(err, errors.CodeRefreshFailed) {
			fmt.Fprintf(cmd.OutOrStdout(), "Reconciliation %s %s\n", id, transitionVerbs[target])
			return err
		}
		if err != nil {
			return err
		}

		status := record.Status
		if updated, ok := a.view.Find(id); ok {
			status = updated.Status
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reconciliation %s %s (status: %s)\n", id, transitionVerbs[target], status)
		return nil
	}
}
