package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
)

// SampleValues fill templates in previews.
var SampleValues = followup.Values{
	followup.PlaceholderCustomerName:   "Jordan Smith",
	followup.PlaceholderTechnicianName: "Alex",
	followup.PlaceholderServiceType:    "AC Repair",
	followup.PlaceholderLocation:       "Springfield",
	followup.PlaceholderReviewLink:     "https://example.com/r/sample",
}

type SettingsService struct {
	repo SettingsRepository
}

func NewSettingsService(repo SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Get returns the stored settings of companyID, or the defaults when the
// company never saved any.
func (s *SettingsService) Get(ctx context.Context, companyID string) (*model.FollowUpSettings, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, model.ErrInvalidCompanyID
	}
	settings, err := s.repo.Get(ctx, companyID)
	if errors.Is(err, model.ErrSettingsNotFound) {
		return followup.DefaultSettings(companyID), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get settings")
	}
	return settings, nil
}

// Save validates settings and stores them as the company's configuration.
// Validation failures are returned as *model.ConfigurationError.
func (s *SettingsService) Save(ctx context.Context, companyID string, settings *model.FollowUpSettings) (*model.FollowUpSettings, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, model.ErrInvalidCompanyID
	}
	settings.CompanyID = companyID
	if err := followup.ValidateSettings(settings); err != nil {
		return nil, err
	}
	saved, err := s.repo.Upsert(ctx, settings)
	if err != nil {
		return nil, errors.Wrap(err, "save settings")
	}
	return saved, nil
}

type PreviewRequest struct {
	Stage model.Stage `json:"stage"`
	// Settings previews unsaved settings; nil uses the stored ones.
	Settings *model.FollowUpSettings `json:"settings,omitempty"`
	Values   followup.Values         `json:"values,omitempty"`
}

// Preview renders a stage with sample values merged under req.Values.
func (s *SettingsService) Preview(ctx context.Context, companyID string, req PreviewRequest) ([]followup.RenderedMessage, error) {
	if !req.Stage.Valid() {
		cerr := &model.ConfigurationError{}
		cerr.Add("stage", "unknown stage %q", req.Stage)
		return nil, cerr
	}
	settings := req.Settings
	if settings == nil {
		var err error
		if settings, err = s.Get(ctx, companyID); err != nil {
			return nil, err
		}
	}

	values := followup.Values{}
	if settings.CompanyName != "" {
		values[followup.PlaceholderCompanyName] = settings.CompanyName
	}
	for k, v := range SampleValues {
		values[k] = v
	}
	for k, v := range req.Values {
		values[k] = v
	}
	return followup.RenderStage(settings, req.Stage, values), nil
}
