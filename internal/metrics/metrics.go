// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	joinsTotal        *prometheus.CounterVec
	messagesTotal     prometheus.Counter
	jobPostsTotal     prometheus.Counter
	errorsTotal       *prometheus.CounterVec
	waitSeconds       *prometheus.HistogramVec
	accountsProcessed prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple
// times.
func Init() {
	once.Do(func() {
		joinsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_joins_total",
				Help: "Total group join attempts, labeled by outcome.",
			},
			[]string{"status"},
		)
		messagesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_messages_total",
				Help: "Total messages scraped.",
			},
		)
		jobPostsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_job_posts_total",
				Help: "Total messages classified as job postings.",
			},
		)
		errorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_errors_total",
				Help: "Total errors encountered, labeled by kind.",
			},
			[]string{"kind"},
		)
		waitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_governor_wait_seconds",
				Help:    "Histogram of rate governor wait durations, labeled by operation.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"op"},
		)
		accountsProcessed = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_accounts_processed_total",
				Help: "Total account rounds completed.",
			},
		)
	})
}

// IncJoin records a join attempt outcome ("joined" or "failed").
func IncJoin(status string) {
	if joinsTotal != nil {
		joinsTotal.WithLabelValues(status).Inc()
	}
}

// AddMessages records n scraped messages.
func AddMessages(n int) {
	if messagesTotal != nil {
		messagesTotal.Add(float64(n))
	}
}

// IncJobPosts records one classified job posting.
func IncJobPosts() {
	if jobPostsTotal != nil {
		jobPostsTotal.Inc()
	}
}

// IncError records an error by kind ("auth", "join", "scrape", "sink").
func IncError(kind string) {
	if errorsTotal != nil {
		errorsTotal.WithLabelValues(kind).Inc()
	}
}

// ObserveWait records a governor wait duration.
func ObserveWait(op string, d time.Duration) {
	if waitSeconds != nil {
		waitSeconds.WithLabelValues(op).Observe(d.Seconds())
	}
}

// IncAccountsProcessed records one completed account round.
func IncAccountsProcessed() {
	if accountsProcessed != nil {
		accountsProcessed.Inc()
	}
}
