package review

import "errors"

var (
	// ErrNoDailyReviews means the weekly window has no daily artifact to aggregate.
	// Generate a daily review first.
	ErrNoDailyReviews = errors.New("review: no daily reviews in this week")

	// ErrGenerationFailed wraps a text generation failure. The run stopped before touching the index.
	ErrGenerationFailed = errors.New("review: generation failed")
)
