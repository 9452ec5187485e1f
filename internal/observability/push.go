package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushMetrics sends everything in the default registry to a Pushgateway.
// Batch runs exit before any scraper comes around, so the run pushes its
// final counters instead. The job label groups runs of this binary; the
// caller adds the year as a grouping label.
func PushMetrics(url, job, year string) error {
	if err := push.New(url, job).
		Grouping("year", year).
		Gatherer(prometheus.DefaultGatherer).
		Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
