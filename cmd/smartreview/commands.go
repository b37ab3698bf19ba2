package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/entity"
	"github.com/landlorddocs/smartreview/internal/pipeline"
	"github.com/landlorddocs/smartreview/internal/review"
)

func newReviewCmd(verbose *bool) *cobra.Command {
	var (
		caseID       string
		category     string
		jurisdiction string
	)
	cmd := &cobra.Command{
		Use:   "review <file>",
		Short: "Submit one evidence file and print the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *verbose)
			if err != nil {
				return err
			}
			defer app.close()

			id, err := parseCaseID(caseID)
			if err != nil {
				return err
			}
			report, err := app.svc.SubmitEvidence(cmd.Context(), review.SubmitRequest{
				CaseID:           id,
				SourcePath:       args[0],
				DeclaredCategory: category,
				Jurisdiction:     parseJurisdiction(jurisdiction),
			})
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}
	cmd.Flags().StringVar(&caseID, "case", "", "case id (uuid)")
	cmd.Flags().StringVar(&category, "category", "", "declared category, e.g. section8-notice")
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "jurisdiction (default ENGLAND)")
	_ = cmd.MarkFlagRequired("case")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newCaseCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Inspect or rerun a case",
	}

	var jurisdiction string
	rerun := &cobra.Command{
		Use:   "rerun <case-id>",
		Short: "Rerun the pipeline over every file on the case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *verbose)
			if err != nil {
				return err
			}
			defer app.close()

			id, err := parseCaseID(args[0])
			if err != nil {
				return err
			}
			report, err := app.svc.ReviewCase(cmd.Context(), id, parseJurisdiction(jurisdiction), nil)
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}
	rerun.Flags().StringVar(&jurisdiction, "jurisdiction", "", "jurisdiction (default ENGLAND)")

	facts := &cobra.Command{
		Use:   "facts <case-id>",
		Short: "Print the case's current promoted facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *verbose)
			if err != nil {
				return err
			}
			defer app.close()

			id, err := parseCaseID(args[0])
			if err != nil {
				return err
			}
			fs, err := app.svc.GetFacts(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, f := range fs {
				fmt.Printf("%-28s %-30s %.2f %s\n", f.FieldName, f.Value, f.Confidence, f.Source)
			}
			return nil
		},
	}

	warnings := &cobra.Command{
		Use:   "warnings <case-id>",
		Short: "Print the case's current warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *verbose)
			if err != nil {
				return err
			}
			defer app.close()

			id, err := parseCaseID(args[0])
			if err != nil {
				return err
			}
			ws, err := app.svc.GetWarnings(cmd.Context(), id)
			if err != nil {
				return err
			}
			printWarnings(ws)
			return nil
		},
	}

	suggested := &cobra.Command{
		Use:   "suggested <case-id>",
		Short: "Print the latest run's promoted facts awaiting user confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *verbose)
			if err != nil {
				return err
			}
			defer app.close()

			id, err := parseCaseID(args[0])
			if err != nil {
				return err
			}
			ms, err := app.svc.GetSuggestedFacts(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, m := range ms {
				fmt.Printf("%-28s %-30s %.2f %s\n", m.FieldName, m.Value, m.Confidence, m.Source)
			}
			return nil
		},
	}

	cmd.AddCommand(rerun, facts, warnings, suggested)
	return cmd
}

func newExportCmd(verbose *bool) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <case-id>",
		Short: "Export a case review workbook (xlsx)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *verbose)
			if err != nil {
				return err
			}
			defer app.close()

			id, err := parseCaseID(args[0])
			if err != nil {
				return err
			}
			data, err := app.export.ExportCaseXLSX(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "case-review.xlsx", "output path")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with the review catalog",
	}
	validate := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a catalog file (or the embedded default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			catalog, err := config.LoadCatalog(path)
			if err != nil {
				return err
			}
			fmt.Printf("catalog ok: version %d, %d document types\n", catalog.Version, len(catalog.Fields))
			return nil
		},
	}
	cmd.AddCommand(validate)
	return cmd
}

func printReport(report *pipeline.Report) {
	rec := report.Record
	if report.Throttled {
		fmt.Printf("throttled: showing run %s\n", rec.ID)
	} else {
		fmt.Printf("run %s: %d file(s), %d page(s), %s\n", rec.ID, len(rec.Files), rec.TotalPages, rec.Duration)
	}
	for _, f := range rec.Files {
		line := fmt.Sprintf("  %s %s", f.Status, f.FileHash[:min(12, len(f.FileHash))])
		if f.SkipReason != "" {
			line += " (" + f.SkipReason + ")"
		}
		fmt.Println(line)
	}
	for _, fact := range report.Facts {
		fmt.Printf("  fact %-28s = %s (%.2f)\n", fact.FieldName, fact.Value, fact.Confidence)
	}
	printWarnings(report.Warnings)
	for _, v := range report.Validations {
		fmt.Printf("  %s/%s: %s", v.Jurisdiction, v.DocumentType, v.Result.Status)
		if v.Result.RecommendedAction != "" {
			fmt.Printf(" -> %s", v.Result.RecommendedAction)
		}
		fmt.Println()
		printWarnings(v.Result.Blockers)
		printWarnings(v.Result.Warnings)
	}
}

func printWarnings(ws []entity.Warning) {
	for _, w := range ws {
		fmt.Printf("  [%s] %s: %s\n", w.Severity, w.Code, w.Message)
	}
}
