package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/raaihank/fairhire/internal/compat"
	"github.com/raaihank/fairhire/internal/gauge"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score skills against a job description or the job catalog",
	Long: `Score computes the compatibility index of a skill list. With --description
the skills are scored against that text, with --job against one catalog job
and otherwise against every catalog job.

` + heuristicHelp,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("description", "d", "", "job description to score against")
	scoreCmd.Flags().StringP("skills", "s", "", "comma separated skills (default from compatibility.default_skills)")
	scoreCmd.Flags().String("job", "", "title of a catalog job to score against")
	scoreCmd.Flags().BoolP("interactive", "i", false, "pick a catalog job and enter skills interactively")
	scoreCmd.Flags().String("gauge", "", "write an SVG gauge of the score to this file")
}

func runScore(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	svc := newServices(cfg, log)
	defer svc.Close()

	scorer, catalogScorer, err := svc.scorers(ctx)
	if err != nil {
		return err
	}

	description, _ := cmd.Flags().GetString("description")
	skills, _ := cmd.Flags().GetString("skills")
	job, _ := cmd.Flags().GetString("job")
	interactive, _ := cmd.Flags().GetBool("interactive")
	gaugeFile, _ := cmd.Flags().GetString("gauge")
	if strings.TrimSpace(skills) == "" {
		skills = cfg.Compatibility.DefaultSkills
	}

	w := cmd.OutOrStdout()
	var results []compat.JobScore

	switch {
	case interactive:
		result, err := scoreInteractive(ctx, svc, catalogScorer, skills)
		if err != nil {
			return err
		}
		results = append(results, *result)
	case job != "":
		result, err := catalogScorer.ScoreJob(ctx, job, skills)
		if err != nil {
			return err
		}
		results = append(results, *result)
	case description != "":
		score, err := scorer.Score(ctx, description, skills)
		if err != nil {
			return err
		}
		results = append(results, compat.JobScore{Title: "description", Description: description, Score: *score})
	default:
		results, err = catalogScorer.ScoreAll(ctx, skills)
		if err != nil {
			return err
		}
	}

	for _, r := range results {
		printScore(w, r)
	}

	if gaugeFile != "" {
		if len(results) != 1 {
			return fmt.Errorf("--gauge needs a single score, got %d", len(results))
		}
		return writeGauge(gaugeFile, results[0])
	}
	return nil
}

func printScore(w io.Writer, r compat.JobScore) {
	fmt.Fprintf(w, "Compatibility Index for %s: %s (%s)\n", r.Title, r.Score.Formatted(), r.Score.Band)
}

// scoreInteractive lets the user pick a catalog job and confirm the skills
func scoreInteractive(ctx context.Context, svc *services, catalogScorer *compat.CatalogScorer, skills string) (*compat.JobScore, error) {
	store, err := svc.catalogStore(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, errors.New("the job catalog is empty")
	}

	titles := make([]string, len(jobs))
	for i, j := range jobs {
		titles[i] = j.Title
	}

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: titles,
	}
	_, title, err := jobPrompt.Run()
	if err != nil {
		return nil, err
	}

	skillsPrompt := promptui.Prompt{
		Label:   "Enter Employee Skills",
		Default: skills,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("skills cannot be empty")
			}
			return nil
		},
	}
	skills, err = skillsPrompt.Run()
	if err != nil {
		return nil, err
	}

	return catalogScorer.ScoreJob(ctx, title, skills)
}

func writeGauge(path string, r compat.JobScore) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating gauge file: %w", err)
	}
	if err := gauge.New().Render(f, r.Score.Display, r.Title+" Compatibility Index"); err != nil {
		f.Close()
		return fmt.Errorf("rendering gauge: %w", err)
	}
	return f.Close()
}
