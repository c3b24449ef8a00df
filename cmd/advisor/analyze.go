package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"advisor-backend/internal/recommendations"
)

func newAnalyzeCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <text>",
		Short: "Classify requirement text without recommending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := c.engine()
			if err != nil {
				return err
			}
			svc := &recommendations.Service{Engine: eng}
			res, err := svc.Analyze(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			an := res.Analysis
			fmt.Fprintf(c.out, "Business type:  %s (confidence %.2f)\n", an.BusinessType, an.BusinessTypeConfidence)
			fmt.Fprintf(c.out, "Platform:       %s (confidence %.2f)\n", an.PlatformSignal, an.PlatformConfidence)
			fmt.Fprintf(c.out, "Features:       %s\n", joinOrNone(an.DetectedFeatures))
			fmt.Fprintf(c.out, "Clarity score:  %.2f\n", an.ClarityScore)
			fmt.Fprintf(c.out, "Portability:    %s\n", an.Portability)
			fmt.Fprintf(c.out, "Notifications:  %s\n", an.Notification)
			fmt.Fprintf(c.out, "Urgency:        %s\n", an.Urgency)
			if b := an.Budget.Ceiling(); b != nil {
				fmt.Fprintf(c.out, "Budget:         %.2f\n", *b)
			}
			if d := an.Timeline.CeilingDays(); d != nil {
				fmt.Fprintf(c.out, "Timeline:       %d days\n", *d)
			}
			if len(an.AmbiguousTerms) > 0 {
				fmt.Fprintf(c.out, "Ambiguous:      %s\n", strings.Join(an.AmbiguousTerms, ", "))
			}
			if res.NeedsClarification {
				fmt.Fprintln(c.out, "\nNeeds clarification:")
				for i, q := range res.Questions {
					fmt.Fprintf(c.out, "  %d. %s\n", i+1, q)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	return cmd
}

func joinOrNone[T ~string](items []T) string {
	if len(items) == 0 {
		return "none"
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = string(item)
	}
	return strings.Join(parts, ", ")
}
