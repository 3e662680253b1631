package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/raaihank/fairhire/internal/anonymizer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize <input> [output]",
	Short: "Anonymize a PDF or DOCX resume into a new PDF",
	Long: `Anonymize masks names, places, e-mail addresses, phone numbers and ages
in a resume and writes one PDF page per input page. The output defaults to
` + anonymizer.DefaultOutputName + ` in the current directory.

` + heuristicHelp,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnonymize,
}

func init() {
	rootCmd.AddCommand(anonymizeCmd)
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	svc := newServices(cfg, log)
	defer svc.Close()

	pipeline, err := svc.anonymizer(ctx)
	if err != nil {
		return err
	}

	out := anonymizer.DefaultOutputName
	if len(args) == 2 {
		out = args[1]
	}

	report, err := pipeline.AnonymizeFile(ctx, args[0], out)
	if err != nil {
		log.Error("Anonymization failed", zap.String("input", args[0]), zap.Error(err))
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Anonymized %s (%s, %d pages) into %s\n", args[0], report.Format, report.Pages, out)
	for _, f := range report.Findings {
		fmt.Fprintf(w, "  %-8s %3d masked as %s\n", f.EntityType, f.Count, f.Masked)
	}
	if report.Render != nil && report.Render.ClippedLines > 0 {
		fmt.Fprintf(w, "  %d lines did not fit their page and were dropped\n", report.Render.ClippedLines)
	}
	if report.Artifact != nil {
		fmt.Fprintf(w, "Stored as %s\n", report.Artifact.Location)
	}
	return nil
}
