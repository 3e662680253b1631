package main

import (
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/raaihank/fairhire/internal/embeddings"
	"github.com/raaihank/fairhire/internal/importer"
	"github.com/raaihank/fairhire/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage the job catalog",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import jobs from a CSV, JSON lines or Parquet file",
	Long: `Import upserts title/description records into the catalog. Existing
titles are updated in place. The format follows the file extension:
.parquet, .json/.jsonl/.ndjson, anything else is read as CSV with a
title,description header.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobsImport,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd, jobsImportCmd)

	jobsListCmd.Flags().BoolP("full", "f", false, "print full descriptions")

	defaults := importer.DefaultConfig()
	jobsImportCmd.Flags().Int("batch-size", defaults.BatchSize, "records per upsert")
	jobsImportCmd.Flags().Bool("warm-embeddings", false, "embed imported descriptions so the embedding cache is filled")
	jobsImportCmd.Flags().Bool("no-validate", false, "skip record validation")
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	svc := newServices(cfg, log)
	defer svc.Close()

	store, err := svc.catalogStore(cmd.Context())
	if err != nil {
		return err
	}
	jobs, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	full, _ := cmd.Flags().GetBool("full")
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION")
	for _, j := range jobs {
		description := j.Description
		if !full {
			description = logger.TruncateForLog(description, 60)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", j.ID, j.Title, description)
	}
	return tw.Flush()
}

func runJobsImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	svc := newServices(cfg, log)
	defer svc.Close()

	store, err := svc.catalogStore(ctx)
	if err != nil {
		return err
	}
	if cfg.Catalog.Driver == "" || cfg.Catalog.Driver == "memory" {
		log.Warn("The memory catalog is not persisted; imported jobs are dropped on exit")
	}

	importCfg := importer.DefaultConfig()
	importCfg.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	importCfg.WarmEmbeddings, _ = cmd.Flags().GetBool("warm-embeddings")
	if noValidate, _ := cmd.Flags().GetBool("no-validate"); noValidate {
		importCfg.ValidateData = false
	}

	var service embeddings.EmbeddingService
	if importCfg.WarmEmbeddings {
		if service, err = svc.embeddingService(ctx); err != nil {
			return err
		}
	}

	result, err := importer.NewPipeline(store, service, importCfg, log.WithComponent("importer").Logger).ProcessFile(ctx, args[0])
	if err != nil {
		log.Error("Import failed", zap.String("file", args[0]), zap.Error(err))
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Imported %s: %d records, %d inserted, %d updated, %d invalid, %d duplicates in %s\n",
		args[0], result.TotalRecords, result.Inserted, result.Updated, result.Invalid, result.Duplicates, result.Duration)
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "  %s\n", msg)
	}
	return nil
}
