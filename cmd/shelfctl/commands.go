package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/seed"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the tables and indexes (safe to run repeatedly)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.db.Initialize(cmd.Context()); err != nil {
				return fmt.Errorf("initializing schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Import categories and links from a seed file",
		Long: "Import categories and links from a YAML seed file. Entries whose id\n" +
			"already exists are skipped, so a seed can be re-run safely.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			if err := a.db.Initialize(cmd.Context()); err != nil {
				return fmt.Errorf("initializing schema: %w", err)
			}

			res, err := a.seeds().Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d categories and %d links.\n", res.Categories, res.Links)
			return nil
		},
	}
}

func newCategoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List or add categories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories ordered by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, c := range a.categories().ListCategories(cmd.Context()) {
				fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Name)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <id> <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.categories().CreateCategory(cmd.Context(), model.CreateCategoryInput{ID: args[0], Name: args[1]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added category %s (%s).\n", cat.ID, cat.Name)
			return nil
		},
	})

	return cmd
}

func newLinksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Inspect links",
	}

	var (
		search     string
		categories []string
		sortKey    string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List links, optionally filtered and sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			links := a.links().Browse(cmd.Context(), search, categories, model.ParseSortKey(sortKey))

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tRATING\tADDED\tURL")
			for _, l := range links {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\t%s\n", l.ID, l.Name, l.CategoryName, l.Rating, l.DateAdded, l.URL)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d link(s)\n", len(links))
			return nil
		},
	}
	list.Flags().StringVarP(&search, "search", "s", "", "case-insensitive text to find in name or description")
	list.Flags().StringSliceVarP(&categories, "category", "c", nil, "category id to include (repeatable or comma separated)")
	list.Flags().StringVar(&sortKey, "sort", string(model.SortName), "sort order: "+strings.Join([]string{
		string(model.SortName), string(model.SortDate), string(model.SortCategory), string(model.SortRating),
	}, ", "))

	cmd.AddCommand(list)
	return cmd
}
