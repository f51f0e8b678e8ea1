// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/codes"

	"github.com/holomush/holoauth/internal/auth"
)

// Metrics records auth outcomes, RPC outcomes and session purges.
type Metrics struct {
	AuthRequests   *prometheus.CounterVec
	AuthFailures   *prometheus.CounterVec
	AuthDuration   *prometheus.HistogramVec
	RPCRequests    *prometheus.CounterVec
	RPCDuration    *prometheus.HistogramVec
	SessionsPurged prometheus.Counter
}

var _ auth.Observer = (*Metrics)(nil)

// NewMetrics creates and registers the holoauth metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holoauth_auth_requests_total",
				Help: "Total number of auth operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		AuthFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holoauth_auth_failures_total",
				Help: "Total number of failed auth operations by operation and failure kind",
			},
			[]string{"operation", "kind"},
		),
		AuthDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holoauth_auth_request_duration_seconds",
				Help:    "Auth operation latency by operation",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"operation"},
		),
		RPCRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holoauth_grpc_requests_total",
				Help: "Total number of unary RPCs by method and code",
			},
			[]string{"method", "code"},
		),
		RPCDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holoauth_grpc_request_duration_seconds",
				Help:    "Unary RPC latency by method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		SessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holoauth_sessions_purged_total",
			Help: "Total number of expired sessions removed by the purger",
		}),
	}

	reg.MustRegister(
		m.AuthRequests,
		m.AuthFailures,
		m.AuthDuration,
		m.RPCRequests,
		m.RPCDuration,
		m.SessionsPurged,
	)
	return m
}

// ObserveAuth records one orchestrator call.
func (m *Metrics) ObserveAuth(_ context.Context, op auth.Operation, status auth.Status, kind auth.ErrorKind, elapsed time.Duration) {
	m.AuthRequests.WithLabelValues(string(op), status.String()).Inc()
	if kind != auth.KindNone {
		m.AuthFailures.WithLabelValues(string(op), kind.String()).Inc()
	}
	m.AuthDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// ObserveRPC records one unary RPC.
func (m *Metrics) ObserveRPC(method string, code codes.Code, elapsed time.Duration) {
	m.RPCRequests.WithLabelValues(method, code.String()).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObservePurge records n purged sessions.
func (m *Metrics) ObservePurge(n int64) {
	if n > 0 {
		m.SessionsPurged.Add(float64(n))
	}
}
