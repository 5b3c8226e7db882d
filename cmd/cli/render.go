package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rankitpro/review-followup/internal/config"
	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/internal/repository"
	"github.com/rankitpro/review-followup/internal/services"
)

var (
	renderStage    string
	renderSettings string
	renderCompany  string
	renderValues   []string
)

func init() {
	renderCmd.Flags().StringVar(&renderStage, "stage", string(model.StageInitial), "stage to render")
	renderCmd.Flags().StringVar(&renderSettings, "settings", "", "settings JSON file; defaults are used when neither --settings nor --company is set")
	renderCmd.Flags().StringVar(&renderCompany, "company", "", "load the stored settings of this company")
	renderCmd.Flags().StringSliceVar(&renderValues, "value", nil, "placeholder override as name=value, repeatable")
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Preview a stage template",
	Long: `Render the templates of one stage with sample values.

Examples:
  # Default templates
  followupctl render --stage=first_follow_up

  # Unsaved settings from a file, with a custom customer name
  followupctl render --settings=acme.json --value=customerName=Ann

  # Stored settings of a company
  followupctl render --env=.env --company=acme --stage=final_follow_up`,
	RunE: runRender,
}

func runRender(cmd *cobra.Command, _ []string) error {
	values, err := parseValues(renderValues)
	if err != nil {
		return err
	}

	req := services.PreviewRequest{Stage: model.Stage(renderStage), Values: values}
	companyID := renderCompany

	var svc *services.SettingsService
	switch {
	case renderSettings != "":
		s, err := readSettingsFile(renderSettings)
		if err != nil {
			return err
		}
		if err := followup.ValidateSettings(s); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
		req.Settings = s
		svc = services.NewSettingsService(nil)
	case renderCompany != "":
		if err := loadConfig(cmd, nil); err != nil {
			return err
		}
		db, err := config.Get().ConnectPostgres()
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		svc = services.NewSettingsService(repository.NewSettingsRepository(db))
	default:
		req.Settings = followup.DefaultSettings("preview")
		svc = services.NewSettingsService(nil)
	}

	msgs, err := svc.Preview(cmd.Context(), companyID, req)
	if err != nil {
		return err
	}
	return printMessages(cmd.OutOrStdout(), req.Stage, msgs)
}

func readSettingsFile(path string) (*model.FollowUpSettings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := followup.DefaultSettings("")
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func parseValues(pairs []string) (followup.Values, error) {
	values := followup.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --value %q, want name=value", p)
		}
		values[k] = v
	}
	return values, nil
}

func printMessages(w io.Writer, stage model.Stage, msgs []followup.RenderedMessage) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintf(w, "%s: no channel enabled\n", stage)
		return err
	}
	for _, m := range msgs {
		fmt.Fprintf(w, "== %s / %s ==\n", stage, m.Channel)
		if m.Subject != "" {
			fmt.Fprintf(w, "Subject: %s\n\n", m.Subject)
		}
		if _, err := fmt.Fprintf(w, "%s\n\n", m.Body); err != nil {
			return err
		}
	}
	return nil
}
