// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics provides the Prometheus collectors of virtsup.
//
// All methods of [Metrics] are safe to call on a nil receiver, so components
// can be used without metrics.
package metrics

import (
	"errors"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aibor/virtsup/internal/supervisor"
)

const namespace = "virtsup"

// Launch results.
const (
	ResultSuccess          = "success"
	ResultInvalidRequest   = "invalid_request"
	ResultAllocationFailed = "allocation_failed"
	ResultSpawnFailed      = "spawn_failed"
	ResultError            = "error"
)

// Exit statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// InstanceCounter returns the number of instances per state. It is called on
// every scrape.
type InstanceCounter func() map[supervisor.State]int

// Metrics holds the collectors of a single registry.
type Metrics struct {
	registry  *prometheus.Registry
	launches  *prometheus.CounterVec
	signals   *prometheus.CounterVec
	exits     *prometheus.CounterVec
	buildInfo *prometheus.GaugeVec
}

// New creates a new set of collectors in a new registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Total number of launch attempts by result.",
		}, []string{"result"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Total number of signals sent to instances.",
		}, []string{"signal"}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instance_exits_total",
			Help:      "Total number of reaped instances by exit status.",
		}, []string{"status"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build metadata for the running virtsup binary.",
		}, []string{"go_version", "version"}),
	}

	m.registry.MustRegister(m.launches, m.signals, m.exits, m.buildInfo)

	return m
}

// Registry returns the Prometheus registry containing all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterInstances registers a gauge with the number of instances per state
// as reported by the given counter.
func (m *Metrics) RegisterInstances(counter InstanceCounter) error {
	if m == nil {
		return nil
	}

	//nolint:wrapcheck
	return m.registry.Register(&instancesCollector{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "instances"),
			"Number of known instances by state.",
			[]string{"state"},
			nil,
		),
		counter: counter,
	})
}

// LaunchFinished counts a launch attempt with the result derived from the
// error returned by the launch.
func (m *Metrics) LaunchFinished(err error) {
	if m == nil {
		return
	}

	m.launches.WithLabelValues(launchResult(err)).Inc()
}

// SignalSent counts a signal sent to an instance.
func (m *Metrics) SignalSent(signal string) {
	if m == nil {
		return
	}

	m.signals.WithLabelValues(signal).Inc()
}

// InstanceExited counts a reaped instance with the status derived from the
// error returned by waiting for it.
func (m *Metrics) InstanceExited(err error) {
	if m == nil {
		return
	}

	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}

	m.exits.WithLabelValues(status).Inc()
}

// EmitBuildInfo publishes build metadata about the running binary.
func (m *Metrics) EmitBuildInfo(version string) {
	if m == nil {
		return
	}

	goVersion := runtime.Version()
	if info, ok := debug.ReadBuildInfo(); ok && info.GoVersion != "" {
		goVersion = info.GoVersion
	}

	m.buildInfo.WithLabelValues(goVersion, version).Set(1)
}

func launchResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, supervisor.ErrInvalidRequest):
		return ResultInvalidRequest
	case errors.Is(err, supervisor.ErrAllocationFailed):
		return ResultAllocationFailed
	case errors.Is(err, supervisor.ErrSpawnFailed):
		return ResultSpawnFailed
	default:
		return ResultError
	}
}

type instancesCollector struct {
	desc    *prometheus.Desc
	counter InstanceCounter
}

func (c *instancesCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *instancesCollector) Collect(ch chan<- prometheus.Metric) {
	counts := c.counter()

	for _, state := range []supervisor.State{
		supervisor.StateCreated,
		supervisor.StateRunning,
		supervisor.StateStopped,
		supervisor.StateExited,
	} {
		ch <- prometheus.MustNewConstMetric(
			c.desc,
			prometheus.GaugeValue,
			float64(counts[state]),
			state.String(),
		)
	}
}
