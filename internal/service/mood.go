package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/moodmap/internal/apperror"
	"github.com/sakif/moodmap/internal/model"
	"github.com/sakif/moodmap/internal/repository"
)

// AggregationWindow is how far back DistrictMoods looks.
const AggregationWindow = 24 * time.Hour

const (
	MsgMoodFieldsRequired = "District and mood are required"
	MsgInvalidDistrict    = "Invalid district"
	MsgInvalidMood        = "Invalid mood"
	MsgAlreadySubmitted   = "You have already submitted your mood. Each user can only submit once."
)

// MoodService accepts submissions and computes the district rollup.
type MoodService struct {
	moods  repository.MoodRepository
	logger *slog.Logger
	now    func() time.Time // replaced in tests
}

// NewMoodService creates a MoodService on the wall clock.
func NewMoodService(moods repository.MoodRepository, logger *slog.Logger) *MoodService {
	return &MoodService{
		moods:  moods,
		logger: logger,
		now:    time.Now,
	}
}

// Submit records the user's one and only mood submission.
func (s *MoodService) Submit(ctx context.Context, userID, district, mood string) (*model.MoodSubmission, error) {
	if district == "" || mood == "" {
		return nil, apperror.ValidationFailed("", MsgMoodFieldsRequired)
	}

	d, m := model.District(district), model.Mood(mood)
	if !d.Valid() {
		return nil, apperror.ValidationFailed("district", MsgInvalidDistrict)
	}
	if !m.Valid() {
		return nil, apperror.ValidationFailed("mood", MsgInvalidMood)
	}

	submission := &model.MoodSubmission{
		District:  d,
		Mood:      m,
		CreatedAt: s.now(),
	}

	if err := s.moods.SubmitMood(ctx, userID, submission); err != nil {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return nil, apperror.Unauthorized(MsgUserNotFound)
		case errors.Is(err, apperror.ErrForbidden):
			return nil, apperror.Forbidden(MsgAlreadySubmitted)
		}
		return nil, fmt.Errorf("service/mood: submitting for user %s: %w", userID, err)
	}

	// The submission is anonymous, so the user ID is not logged with it.
	s.logger.Info("mood submitted",
		slog.String("district", string(d)),
		slog.String("mood", string(m)),
	)

	return submission, nil
}

// DistrictMoods returns the dominant mood of every district with at least
// one submission in the trailing AggregationWindow, in district order.
//
// Within a district the highest count wins. Ties go to the mood whose first
// submission in the window came earliest, then to the earlier mood in
// model.Moods.
func (s *MoodService) DistrictMoods(ctx context.Context) ([]model.DistrictMood, error) {
	since := s.now().Add(-AggregationWindow)

	counts, err := s.moods.CountMoodsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("service/mood: counting moods: %w", err)
	}

	best := make(map[model.District]model.MoodCount, len(model.Districts))
	for _, c := range counts {
		if !c.District.Valid() || !c.Mood.Valid() {
			continue
		}
		cur, ok := best[c.District]
		if !ok || dominates(c, cur) {
			best[c.District] = c
		}
	}

	result := make([]model.DistrictMood, 0, len(best))
	for _, d := range model.Districts {
		c, ok := best[d]
		if !ok {
			continue
		}
		result = append(result, model.DistrictMood{District: d, Mood: c.Mood, Count: c.Count})
	}
	return result, nil
}

// dominates reports whether a should replace b as a district's dominant mood.
func dominates(a, b model.MoodCount) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	if !a.FirstSubmittedAt.Equal(b.FirstSubmittedAt) {
		return a.FirstSubmittedAt.Before(b.FirstSubmittedAt)
	}
	return a.Mood.Index() < b.Mood.Index()
}
