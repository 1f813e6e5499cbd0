// Package scheduler is the nightly bulk-compute job (C9): it enumerates
// every route, scores each one against the current date's weather data
// through internal/scorer, and writes the results to internal/resultcache
// at the week-long bulk TTL. It runs on a fixed robfig/cron/v3 schedule and
// can also be triggered early by an operator through internal/query's
// recompute call, delivered here over Cloud Pub/Sub.
package scheduler

import "time"

// Config tunes the nightly fan-out.
type Config struct {
	// CronSpec is the robfig/cron/v3 schedule the nightly run fires on.
	// Default: 03:00 daily, local to the process's configured timezone.
	CronSpec string

	// Concurrency is the number of routes scored concurrently.
	Concurrency int

	// BatchSize is how many computed predictions accumulate before a
	// single pipelined resultcache.SetMany write, bounding both memory
	// and the size of any one redis pipeline.
	BatchSize int

	// RouteTimeout bounds one coordinate bucket: its forecast and
	// LocationStats prefetch and the scoring of every route in it share
	// this single deadline.
	RouteTimeout time.Duration

	// ProjectID is the GCP project the Pub/Sub recompute topic and
	// subscription live in.
	ProjectID string

	// RecomputeTopic is the Pub/Sub topic internal/query publishes
	// operator-triggered recompute requests to.
	RecomputeTopic string

	// RecomputeSubscription is the subscription this package's
	// PubSubHandler listens on.
	RecomputeSubscription string
}

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		CronSpec:              "0 3 * * *",
		Concurrency:           8,
		BatchSize:             200,
		RouteTimeout:          15 * time.Second,
		RecomputeTopic:        "alpinerisk-recompute",
		RecomputeSubscription: "alpinerisk-recompute-scheduler",
	}
}
