package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/onthisday/internal/email"
	"github.com/brandon/onthisday/internal/memories"
)

// DigestRunner runs a digest job to completion
type DigestRunner interface {
	DeliverWithRetry(ctx context.Context, date time.Time) email.Outcome
}

// SendDigestTool delivers the digest email for a day
type SendDigestTool struct {
	digest DigestRunner
	loc    *time.Location
	logger *logrus.Logger
	now    func() time.Time
}

// NewSendDigestTool creates a new send digest tool
func NewSendDigestTool(digest DigestRunner, loc *time.Location, logger *logrus.Logger) *SendDigestTool {
	return &SendDigestTool{
		digest: digest,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the tool name
func (t *SendDigestTool) Name() string {
	return "send_digest"
}

// Description returns the tool description
func (t *SendDigestTool) Description() string {
	return "Email the digest of photos taken on a given day in past years, retrying while the mail server is unreachable"
}

// InputSchema returns the JSON schema for tool inputs
func (t *SendDigestTool) InputSchema() map[string]interface{} {
	return dateSchema()
}

// Execute runs the digest job and reports its outcome
func (t *SendDigestTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if t.digest == nil {
		return nil, errors.New("email delivery is not configured")
	}

	raw, _ := params["date"].(string)
	date, ok := memories.ParseDate(raw, t.now(), t.loc)
	if raw != "" && !ok {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}

	out := t.digest.DeliverWithRetry(ctx, date)

	result := map[string]interface{}{
		"success":  out.State == email.Succeeded,
		"state":    string(out.State),
		"attempts": out.Attempts,
	}
	if out.Err != nil {
		result["error"] = out.Err.Error()
	}
	return result, nil
}
