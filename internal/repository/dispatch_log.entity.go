package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/pg"
)

type DispatchLogEntity struct {
	pg.Model
	StatusID    uuid.UUID `gorm:"column:status_id;type:uuid;not null;index"`
	Stage       string    `gorm:"column:stage;not null"`
	Channel     string    `gorm:"column:channel;not null"`
	Provider    string    `gorm:"column:provider"`
	Destination string    `gorm:"column:destination"`
	Result      string    `gorm:"column:result;not null;index"`
	Error       string    `gorm:"column:error;type:text"`
	AttemptedAt time.Time `gorm:"column:attempted_at;not null"`
}

func (DispatchLogEntity) TableName() string {
	return "dispatch_logs"
}

func toDispatchLogEntity(m *model.DispatchLog) *DispatchLogEntity {
	if m == nil {
		return nil
	}
	return &DispatchLogEntity{
		Model:       pg.Model{ID: m.ID},
		StatusID:    m.StatusID,
		Stage:       string(m.Stage),
		Channel:     string(m.Channel),
		Provider:    m.Provider,
		Destination: m.Destination,
		Result:      string(m.Result),
		Error:       m.Error,
		AttemptedAt: m.AttemptedAt,
	}
}

func toDispatchLogModel(e *DispatchLogEntity) *model.DispatchLog {
	if e == nil {
		return nil
	}
	return &model.DispatchLog{
		ID:          e.ID,
		StatusID:    e.StatusID,
		Stage:       model.Stage(e.Stage),
		Channel:     model.Channel(e.Channel),
		Provider:    e.Provider,
		Destination: e.Destination,
		Result:      model.DispatchResult(e.Result),
		Error:       e.Error,
		AttemptedAt: e.AttemptedAt,
	}
}

func toDispatchLogModels(entities []*DispatchLogEntity) []*model.DispatchLog {
	if entities == nil {
		return nil
	}
	models := make([]*model.DispatchLog, len(entities))
	for i, e := range entities {
		models[i] = toDispatchLogModel(e)
	}
	return models
}
