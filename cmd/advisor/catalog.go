package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"advisor-backend/internal/catalog"
)

func newCatalogCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show or validate the recommendation catalog",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show",
		Short: "List business types, platforms, features and tech stacks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog()
			if err != nil {
				return err
			}
			summary := cat.Summary()
			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(c, summary)
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print the catalog summary as JSON")

	validate := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a catalog file and report every problem found",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				c.catalogPath = args[0]
			}
			cat, err := c.loadCatalog()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "catalog OK: %d business types, %d platforms, %d features, %d tech stack rules\n",
				len(cat.BusinessTypes), len(cat.Platforms), len(cat.Features), len(cat.TechStacks))
			return nil
		},
	}

	cmd.AddCommand(show, validate)
	return cmd
}

func printSummary(c *cli, s catalog.Summary) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUSINESS TYPE\tLABEL")
	for _, bt := range s.BusinessTypes {
		fmt.Fprintf(tw, "%s\t%s\n", bt.ID, bt.Label)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "PLATFORM\tLABEL")
	for _, p := range s.Platforms {
		fmt.Fprintf(tw, "%s\t%s\n", p.ID, p.Label)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "FEATURE\tNAME\tPLATFORMS")
	for _, f := range s.Features {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.ID, f.Name, joinOrNone(f.Platforms))
	}
	_ = tw.Flush()
	fmt.Fprintf(c.out, "\nTech stacks: %s\n", strings.Join(s.TechStacks, ", "))
}
