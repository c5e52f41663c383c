package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/onthisday/internal/memories"
	"github.com/brandon/onthisday/pkg/types"
)

// MemoryLister returns the photos of a date's month and day grouped by year
type MemoryLister interface {
	ForDate(ctx context.Context, date time.Time) ([]types.PhotoGroup, error)
	Location() *time.Location
}

// ListMemoriesTool lists photos taken on a day in past years
type ListMemoriesTool struct {
	memories MemoryLister
	logger   *logrus.Logger
	now      func() time.Time
}

// NewListMemoriesTool creates a new list memories tool
func NewListMemoriesTool(m MemoryLister, logger *logrus.Logger) *ListMemoriesTool {
	return &ListMemoriesTool{
		memories: m,
		logger:   logger,
		now:      time.Now,
	}
}

// Name returns the tool name
func (t *ListMemoriesTool) Name() string {
	return "list_memories"
}

// Description returns the tool description
func (t *ListMemoriesTool) Description() string {
	return "List photos from the NAS library taken on a given day in past years, grouped by year (newest first)"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ListMemoriesTool) InputSchema() map[string]interface{} {
	return dateSchema()
}

// Execute lists the memories for the requested day
func (t *ListMemoriesTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	raw, _ := params["date"].(string)
	date, ok := memories.ParseDate(raw, t.now(), t.memories.Location())
	if raw != "" && !ok {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}

	groups, err := t.memories.ForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, g := range groups {
		total += len(g.Photos)
	}

	t.logger.WithFields(logrus.Fields{
		"date":  date.Format("2006-01-02"),
		"total": total,
	}).Debug("Listed memories")

	return map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"total":  total,
		"groups": groups,
	}, nil
}
