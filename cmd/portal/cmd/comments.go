package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"golang-reconciliation-portal/internal/models"
	"golang-reconciliation-portal/pkg/errors"
)

var commentsFormat string

var commentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Read and write the commentary of a reconciliation",
}

var commentsListCmd = &cobra.Command{
	Use:   "list <reconciliation-id>",
	Short: "Show the commentary thread",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommentsList,
}

var commentsAddCmd = &cobra.Command{
	Use:   "add <reconciliation-id> <text>",
	Short: "Post a comment",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCommentsAdd,
}

var commentsDeleteCmd = &cobra.Command{
	Use:   "delete <reconciliation-id> <comment-id>",
	Short: "Delete a comment",
	Args:  cobra.ExactArgs(2),
	RunE:  runCommentsDelete,
}

func init() {
	rootCmd.AddCommand(commentsCmd)
	commentsCmd.AddCommand(commentsListCmd, commentsAddCmd, commentsDeleteCmd)

	commentsListCmd.Flags().StringVarP(&commentsFormat, "format", "f", "console", "output format: console, json")
}

func runCommentsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.record(ctx, args[0]); err != nil {
		return err
	}
	thread, err := a.view.Comments(ctx, args[0])
	if err != nil {
		return err
	}

	generator, err := a.reporter(commentsFormat)
	if err != nil {
		return err
	}
	return generator.CommentsSafely(args[0], thread, cmd.OutOrStdout())
}

func runCommentsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		return errors.ValidationError(errors.CodeMissingField, "comment", "")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	record, err := commentable(a, cmd, args[0])
	if err != nil {
		return err
	}
	if err := a.client.AddComment(ctx, record.RecLiveID, text); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Comment added to %s\n", record.ID)
	return nil
}

func runCommentsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	record, err := commentable(a, cmd, args[0])
	if err != nil {
		return err
	}
	if err := a.client.DeleteComment(ctx, record.RecLiveID, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Comment %s deleted from %s\n", args[1], record.ID)
	return nil
}

// commentable returns a record that has a commentary thread.
func commentable(a *app, cmd *cobra.Command, id string) (*models.ReconciliationRecord, error) {
	record, err := a.record(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if record.RecLiveID <= 0 {
		return nil, errors.ValidationError(errors.CodeMissingField, "recLiveId", record.RecLiveID).
			WithSuggestion("This reconciliation has no live record to comment on yet")
	}
	return record, nil
}
