package seed

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appModels "github.com/semscan/semscan-api/internal/app/models"
	appRepos "github.com/semscan/semscan-api/internal/app/repositories"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
)

// CreateDefaultData creates demo presenters and upcoming seminar slots if they
// don't exist. Used for local development only.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	presenterRepo := appRepos.NewPresenterRepository(dbPool)
	slotRepo := appRepos.NewSlotRepository(dbPool)

	lgr.Info().Msg("Checking/Creating default data (presenters/slots)...")
	var finalErr error // To collect potential errors without stopping the process

	presenters := []appModels.Presenter{
		{Username: "jdoe", FirstName: "Jane", LastName: "Doe", Email: "jane.doe@semscan.local", Degree: appModels.DegreePhD},
		{Username: "msmith", FirstName: "Mark", LastName: "Smith", Email: "mark.smith@semscan.local", Degree: appModels.DegreeMSc},
		{Username: "achen", FirstName: "Amy", LastName: "Chen", Email: "amy.chen@semscan.local", Degree: appModels.DegreeMSc},
		{Username: "rpatel", FirstName: "Ravi", LastName: "Patel", Email: "ravi.patel@semscan.local", Degree: appModels.DegreePhD},
	}
	for i := range presenters {
		if err := presenterRepo.Create(ctx, &presenters[i]); err != nil && !errors.Is(err, apperrors.ErrConflict) {
			lgr.Error().Err(err).Str("username", presenters[i].Username).Msg("Error creating demo presenter")
			finalErr = errors.Join(finalErr, err)
		}
	}

	existing, err := slotRepo.List(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Error listing slots for seeding")
		return errors.Join(finalErr, err)
	}
	if len(existing) > 0 {
		lgr.Info().Int("count", len(existing)).Msg("Seminar slots already present, skipping slot seeding")
		return finalErr
	}

	// Four Wednesday afternoon sessions starting next week.
	nextWednesday := upcomingWeekday(time.Now(), time.Wednesday)
	for week := 0; week < 4; week++ {
		slot := &appModels.SeminarSlot{
			SlotDate:  nextWednesday.AddDate(0, 0, 7*week),
			StartTime: "14:00",
			EndTime:   "16:00",
			Building:  "Main Building",
			Room:      "Lecture Hall 2",
			Capacity:  4,
		}
		if err := slotRepo.Create(ctx, slot); err != nil {
			lgr.Error().Err(err).Msg("Error creating demo seminar slot")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		lgr.Info().Int64("slotID", slot.ID).Time("date", slot.SlotDate).Msg("Created demo seminar slot")
	}

	return finalErr
}

// upcomingWeekday returns the next occurrence of the given weekday strictly
// after the reference date, truncated to midnight UTC.
func upcomingWeekday(from time.Time, day time.Weekday) time.Time {
	d := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day) - int(d.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return d.AddDate(0, 0, offset)
}
