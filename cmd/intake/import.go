package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/statement-intake/internal/cli"
	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/intake"
	"github.com/Veraticus/statement-intake/internal/parser"
)

func importCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [statement files...]",
		Short: "Read bank statements and suggest categories",
		Long: `Read up to six bank statements, drop transactions that were already
imported, and show the rest grouped for review with a suggested category.

Nothing is stored unless --commit is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args)
		},
	}

	cmd.Flags().StringP("user", "u", "", "user whose history and corrections apply (required)")
	cmd.Flags().StringP("bank", "b", "", "force a statement layout (td, rbc, desjardins, generic, ofx)")
	cmd.Flags().Bool("commit", false, "store the non-duplicate transactions after review")
	cmd.Flags().Bool("show-duplicates", false, "list transactions that were already imported")
	cmd.Flags().Int("history-months", intake.DefaultHistoryMonths, "months of history used to spot recurring bills (0 disables)")
	_ = cmd.MarkFlagRequired("user")

	_ = a.v.BindPFlag("parser.bank_hint", cmd.Flags().Lookup("bank"))

	return cmd
}

func (a *app) runImport(cmd *cobra.Command, paths []string) error {
	userID, _ := cmd.Flags().GetString("user")
	commit, _ := cmd.Flags().GetBool("commit")
	showDuplicates, _ := cmd.Flags().GetBool("show-duplicates")
	historyMonths, _ := cmd.Flags().GetInt("history-months")

	if len(paths) > a.cfg.MaxBatchFiles {
		return common.NewUserError(fmt.Sprintf("At most %d statements can be imported at once", a.cfg.MaxBatchFiles),
			common.ErrTooManyFiles)
	}

	hint, err := parser.ParseLayoutKind(a.cfg.BankHint)
	if err != nil {
		return common.NewUserError("Unknown bank layout", err)
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := interrupts.HandleInterrupts(cmd.Context())
	defer stop()

	files, err := readStatements(cmd, paths)
	if err != nil {
		return err
	}

	store, err := a.initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := a.ensureRegistry(ctx, store); err != nil {
		return err
	}

	pipeline := intake.New(store,
		intake.WithParser(parser.NewParser(parser.WithMaxBatchFiles(a.cfg.MaxBatchFiles))),
		intake.WithEngineConfig(a.cfg.EngineConfig()),
		intake.WithHistoryMonths(historyMonths),
	)

	result, err := pipeline.Run(ctx, userID, files, hint)
	if err != nil {
		if interrupts.WasInterrupted() {
			return nil
		}
		return err
	}

	if err := cli.RenderResult(out(cmd), result, showDuplicates); err != nil {
		return err
	}

	if !commit {
		if len(result.Accepted) > 0 {
			_, _ = fmt.Fprintln(out(cmd), cli.FormatInfo("Review only. Re-run with --commit to store these transactions."))
		}
		return nil
	}

	interrupts.SetCommitting(true)
	committed, err := store.CommitTransactions(ctx, userID, result.Accepted)
	if err != nil {
		if interrupts.WasInterrupted() {
			return nil
		}
		return fmt.Errorf("failed to store transactions: %w", err)
	}

	slog.Info("Import committed",
		"run_id", result.RunID,
		"user_id", userID,
		"inserted", committed.Inserted,
		"skipped", committed.Skipped)
	_, err = fmt.Fprintln(out(cmd), cli.FormatSuccess(
		fmt.Sprintf("Stored %d transactions (%d already present)", committed.Inserted, committed.Skipped)))
	return err
}

// readStatements loads every path, showing progress for multi-file imports.
func readStatements(cmd *cobra.Command, paths []string) ([]parser.File, error) {
	var progress *progressbar.ProgressBar
	if len(paths) > 1 {
		progress = cli.NewProgress(cmd.ErrOrStderr(), len(paths), "Reading statements...")
	}

	files := make([]parser.File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, common.NewUserError("Could not read "+path, err)
		}
		files = append(files, parser.File{Name: filepath.Base(path), Data: data})
		if progress != nil {
			_ = progress.Add(1)
		}
	}
	return files, nil
}
