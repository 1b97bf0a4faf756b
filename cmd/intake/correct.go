package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/statement-intake/internal/cli"
	"github.com/Veraticus/statement-intake/internal/engine"
	"github.com/Veraticus/statement-intake/internal/learning"
)

func correctCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Record a category correction",
		Long: `Record that a transaction description belongs to a category.

Each correction of the same description raises the confidence of the learned
pattern, which takes priority over every built-in rule for that user.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCorrect(cmd)
		},
	}

	cmd.Flags().StringP("user", "u", "", "user making the correction (required)")
	cmd.Flags().StringP("text", "t", "", "description text to learn (required)")
	cmd.Flags().StringP("category", "c", "", "corrected category (required)")
	cmd.Flags().StringP("label", "l", "", "optional label within the category")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("text")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func (a *app) runCorrect(cmd *cobra.Command) error {
	userID, _ := cmd.Flags().GetString("user")
	text, _ := cmd.Flags().GetString("text")
	category, _ := cmd.Flags().GetString("category")
	label, _ := cmd.Flags().GetString("label")

	ctx := cmd.Context()
	store, err := a.initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	learned, err := learning.NewUpdater(store).Record(ctx, userID, text, category, label)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out(cmd), cli.FormatSuccess(fmt.Sprintf(
		"Learned %q → %s (seen %d times, confidence %d)",
		learned.Pattern, learned.CorrectedCategory, learned.Frequency, engine.LearnedConfidence(learned.Frequency))))
	return err
}

func learnedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learned",
		Short: "List a user's learned patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")

			ctx := cmd.Context()
			store, err := a.initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			learned, err := store.LearnedPatterns(ctx, userID)
			if err != nil {
				return err
			}
			return cli.RenderLearned(out(cmd), userID, learned)
		},
	}

	cmd.Flags().StringP("user", "u", "", "user whose patterns to list (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
