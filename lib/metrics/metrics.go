// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics defines the Prometheus collectors digestd exports.
// Collectors live on their own registry so tests and multiple engines
// in one process do not collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "digestd"

// Sources supplies the values behind the gauge metrics. Each function
// is called at scrape time and must be safe for concurrent use. A nil
// function leaves its gauge unregistered.
type Sources struct {
	QueueDepth  func() int
	PoolWorkers func() int
	LiveWorkers func() int
	FreeSlots   func() int
}

// Collectors records job, gate and resize activity.
type Collectors struct {
	registry *prometheus.Registry

	submitted   prometheus.Counter
	completed   *prometheus.CounterVec
	jobDuration prometheus.Histogram
	gateWait    prometheus.Histogram
	resizes     *prometheus.CounterVec
}

// New creates the collectors and registers them, together with gauges
// backed by sources, on a fresh registry.
func New(sources Sources) *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Job submissions accepted into the queue.",
		}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Responses sent, by status name.",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from enqueue to response for jobs handled by a worker.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		gateWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gate_wait_seconds",
			Help:      "Time a worker waited to acquire a staging gate.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		resizes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resize_requests_total",
			Help:      "Pool resize commands, by outcome.",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(c.submitted, c.completed, c.jobDuration, c.gateWait, c.resizes)
	c.registerGauge("queue_depth", "Jobs waiting in the queue.", sources.QueueDepth)
	c.registerGauge("pool_workers", "Recorded worker pool size.", sources.PoolWorkers)
	c.registerGauge("pool_live_workers", "Worker goroutines currently running.", sources.LiveWorkers)
	c.registerGauge("staging_free_slots", "Staging slots not reserved or bound to a job.", sources.FreeSlots)
	return c
}

func (c *Collectors) registerGauge(name, help string, value func() int) {
	if value == nil {
		return
	}
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(value()) }))
}

// Registry returns the registry holding every digestd collector.
func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// JobSubmitted counts a job accepted into the queue.
func (c *Collectors) JobSubmitted() { c.submitted.Inc() }

// JobCompleted counts a response with the given status name.
func (c *Collectors) JobCompleted(status string) {
	c.completed.WithLabelValues(status).Inc()
}

// ObserveJob records the enqueue-to-response time of a job.
func (c *Collectors) ObserveJob(elapsed time.Duration) {
	c.jobDuration.Observe(elapsed.Seconds())
}

// ObserveGateWait records how long a worker waited for a gate.
func (c *Collectors) ObserveGateWait(elapsed time.Duration) {
	c.gateWait.Observe(elapsed.Seconds())
}

// ResizeRequested counts a resize command with its outcome.
func (c *Collectors) ResizeRequested(outcome string) {
	c.resizes.WithLabelValues(outcome).Inc()
}
