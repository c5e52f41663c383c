package memories

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/onthisday/pkg/types"
)

// PhotoSource is the remote library as seen by the service
type PhotoSource interface {
	Authenticate(ctx context.Context) (string, error)
	FetchPhotos(ctx context.Context, sid string) ([]types.Photo, error)
}

// Service runs the fetch, filter and group pipeline for one date
type Service struct {
	source PhotoSource
	loc    *time.Location
	logger *logrus.Logger
}

// NewService creates a service converting capture times in loc (time.Local when nil)
func NewService(source PhotoSource, loc *time.Location, logger *logrus.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		source: source,
		loc:    loc,
		logger: logger,
	}
}

// Location returns the zone used for calendar conversions
func (s *Service) Location() *time.Location {
	return s.loc
}

// PhotosForDay returns every photo taken on date's month and day in any year.
// Each call logs in again and lists the whole library.
func (s *Service) PhotosForDay(ctx context.Context, date time.Time) ([]types.Photo, error) {
	sid, err := s.source.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	all, err := s.source.FetchPhotos(ctx, sid)
	if err != nil {
		return nil, err
	}

	date = date.In(s.loc)
	selected := SelectByDay(all, date.Month(), date.Day(), s.loc)

	s.logger.WithFields(logrus.Fields{
		"total":    len(all),
		"selected": len(selected),
		"month":    int(date.Month()),
		"day":      date.Day(),
	}).Info("Filtered photos for day")

	return selected, nil
}

// ForDate returns the photos of date's month and day grouped by year
func (s *Service) ForDate(ctx context.Context, date time.Time) ([]types.PhotoGroup, error) {
	photos, err := s.PhotosForDay(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get photos for %s: %w", date.Format("2006-01-02"), err)
	}
	return GroupByYear(photos, s.loc), nil
}

// ParseDate parses a YYYY-MM-DD date in loc, falling back to today when the
// value is empty or malformed. The second result reports whether value was used.
func ParseDate(value string, now time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if value != "" {
		if d, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
			return d, true
		}
	}
	now = now.In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), false
}
