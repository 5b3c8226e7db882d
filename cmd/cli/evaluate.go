package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankitpro/review-followup/internal/config"
	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/repository"
	"github.com/rankitpro/review-followup/internal/services"
)

var (
	evaluateJSON    bool
	evaluateCompany string
)

func init() {
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print the plan as JSON")
	evaluateCmd.Flags().StringVar(&evaluateCompany, "company", "", "only show rows of this company")
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Dry-run one evaluation pass and print the plan",
	Long: `Evaluate every open review request as the scheduler would, without
completing rows or enqueueing dispatch jobs.

Examples:
  followupctl evaluate --env=.env
  followupctl evaluate --company=acme --json`,
	PersistentPreRunE: loadConfig,
	RunE:              runEvaluate,
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg := config.Get()
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.SchedulerPassTimeout)
	defer cancel()

	tables := followup.DefaultFactorTables()
	if cfg.TimingTablesFile != "" {
		var err error
		if tables, err = followup.LoadFactorTables(cfg.TimingTablesFile); err != nil {
			return err
		}
	}

	db, err := cfg.ConnectPostgres()
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	statuses := repository.NewStatusRepository(db)
	planner := services.NewPlanner(
		repository.NewSettingsRepository(db),
		repository.NewHolidayRepository(db),
		statuses,
		tables,
		cfg.EngagementMinSamples,
	)
	svc := services.NewEvaluationService(statuses, planner, nil, nil, services.EvaluationConfig{
		PageSize: cfg.SchedulerPageSize,
		Workers:  cfg.SchedulerWorkers,
	})

	rows, err := svc.DryRun(ctx)
	if err != nil {
		return err
	}
	if evaluateCompany != "" {
		filtered := rows[:0]
		for _, r := range rows {
			if r.CompanyID == evaluateCompany {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	return printPlan(cmd.OutOrStdout(), rows, evaluateJSON)
}

func printPlan(w io.Writer, rows []services.PlannedRow, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tCOMPANY\tACTION\tSTAGE\tDUE\tSEND AT\tREASON")
	counts := map[followup.Action]int{}
	for _, r := range rows {
		counts[r.Action]++
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StatusID, r.CompanyID, r.Action, r.Stage, formatTime(r.DueAt), formatTimePtr(r.SendAt), r.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d rows: %d send, %d wait, %d complete, %d none\n", len(rows),
		counts[followup.ActionSend], counts[followup.ActionWait], counts[followup.ActionComplete], counts[followup.ActionNone])
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}
