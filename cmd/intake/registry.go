package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/statement-intake/internal/cli"
)

func registryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the shared merchant and keyword registries",
	}

	cmd.AddCommand(registrySeedCmd(a))
	cmd.AddCommand(registryListCmd(a))

	return cmd
}

func registrySeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file]",
		Short: "Load merchant and keyword patterns from a YAML file",
		Long: `Load merchant and keyword patterns into the database.

Without a file, the configured registry.seed_file is used, or the built-in
patterns when none is configured. Existing patterns with the same text are
updated in place.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}

			seed, err := a.seed(path)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := a.initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			merchants, keywords, err := store.SeedRegistry(ctx, seed)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(out(cmd), cli.FormatSuccess(
				fmt.Sprintf("Seeded %d merchant and %d keyword patterns", merchants, keywords)))
			return err
		},
	}
}

func registryListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the merchant and keyword patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			merchants, err := store.MerchantPatterns(ctx)
			if err != nil {
				return err
			}
			keywords, err := store.KeywordPatterns(ctx)
			if err != nil {
				return err
			}
			return cli.RenderPatterns(out(cmd), merchants, keywords)
		},
	}
}
