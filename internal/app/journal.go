package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/primary"
	"github.com/example/nusup/internal/ports/secondary"
)

// journal is the best-effort install audit trail shared by both
// installers. Every method tolerates a nil repository and swallows
// repository errors after logging them: the journal must never change
// an install result.
type journal struct {
	repo secondary.JournalRepository
	log  *logrus.Logger
}

// beginRun records a new run and returns its id, or "" when the journal
// is unavailable.
func (j journal) beginRun(ctx context.Context, kind, region string) string {
	if j.repo == nil {
		return ""
	}
	runID := uuid.NewString()
	err := j.repo.CreateRun(ctx, &secondary.RunRecord{
		ID:     runID,
		Kind:   kind,
		Region: region,
		Result: "running",
	})
	if err != nil {
		j.log.WithError(err).Warn("journal: could not record run start")
		return ""
	}
	return runID
}

func (j journal) finishRun(ctx context.Context, runID string, result primary.Result, titlesUpdated int) {
	if j.repo == nil || runID == "" {
		return
	}
	if err := j.repo.FinishRun(ctx, runID, result.String(), titlesUpdated); err != nil {
		j.log.WithError(err).Warn("journal: could not record run result")
	}
}

func (j journal) titleEvent(ctx context.Context, runID string, id title.ID, action, detail string) {
	if j.repo == nil || runID == "" {
		return
	}
	err := j.repo.AppendTitleEvent(ctx, &secondary.TitleEventRecord{
		RunID:   runID,
		TitleID: id.Hex(),
		Action:  action,
		Detail:  detail,
	})
	if err != nil {
		j.log.WithError(err).Warn("journal: could not record title event")
	}
}
