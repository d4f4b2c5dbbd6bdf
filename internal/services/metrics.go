package services

import "github.com/prometheus/client_golang/prometheus"

// Pipeline counters. No labels: one process serves one business, and
// per-location detail belongs in logs, not metrics.
var (
	reviewsEligible = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviews_eligible_total",
		Help: "Unreplied, non-empty reviews selected for reply generation.",
	})
	repliesDrafted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replies_drafted_total",
		Help: "Reply drafts produced by the generation step.",
	})
	repliesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replies_published_total",
		Help: "Replies successfully posted to the review platform.",
	})
	publishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reply_publish_failures_total",
		Help: "Reply posts that failed; each is isolated to its review.",
	})
)

func init() {
	prometheus.MustRegister(reviewsEligible, repliesDrafted, repliesPublished, publishFailures)
}
