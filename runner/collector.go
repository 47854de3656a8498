package runner

import (
	"time"

	"github.com/testlane/testlane/types"
)

// SummaryType is the type tag carried by the run summary record.
const SummaryType = "summary"

// Summary is the run-wide result record produced once all suites have
// finished.
type Summary struct {
	types.Counters
	Type       string  `json:"type"`
	DurationMS float64 `json:"duration"`
}

func newSummary(counters types.Counters, duration time.Duration) *Summary {
	return &Summary{
		Counters:   counters,
		Type:       SummaryType,
		DurationMS: durationMS(duration),
	}
}

// emptySummary is the zero-valued record returned when no tests were
// found.
func emptySummary() *Summary {
	return &Summary{Type: SummaryType}
}

// mergeCounters performs the key-wise additive merge of per-suite
// counters into run-wide totals.
func mergeCounters(perSuite []types.Counters) types.Counters {
	var total types.Counters
	for _, c := range perSuite {
		total.Merge(c)
	}
	return total
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
