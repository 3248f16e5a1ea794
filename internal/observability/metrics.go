// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/warden/internal/auth"
)

// AuthMetrics counts authentication, session and reset events. It
// implements auth.Observer.
type AuthMetrics struct {
	Decisions *prometheus.CounterVec
	Sessions  *prometheus.CounterVec
	Resets    *prometheus.CounterVec
}

// NewAuthMetrics creates the counters and registers them with reg.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_auth_decisions_total",
				Help: "Authentication attempts by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		Sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_sessions_total",
				Help: "Session create and destroy operations by strategy and result",
			},
			[]string{"strategy", "op", "ok"},
		),
		Resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_reset_tokens_total",
				Help: "Reset token issue and consume operations by result",
			},
			[]string{"op", "ok"},
		),
	}
	reg.MustRegister(m.Decisions, m.Sessions, m.Resets)
	return m
}

// ObserveAuth implements auth.Observer.
func (m *AuthMetrics) ObserveAuth(kind auth.Kind, outcome auth.Outcome) {
	m.Decisions.WithLabelValues(string(kind), string(outcome)).Inc()
}

// ObserveSession implements auth.Observer.
func (m *AuthMetrics) ObserveSession(kind auth.Kind, op string, ok bool) {
	m.Sessions.WithLabelValues(string(kind), op, strconv.FormatBool(ok)).Inc()
}

// ObserveReset implements auth.Observer.
func (m *AuthMetrics) ObserveReset(op string, ok bool) {
	m.Resets.WithLabelValues(op, strconv.FormatBool(ok)).Inc()
}

// RegisterActiveSessions exposes count as the warden_sessions_active gauge.
func RegisterActiveSessions(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "warden_sessions_active",
			Help: "Sessions currently held in memory",
		},
		func() float64 { return float64(count()) },
	))
}

var _ auth.Observer = (*AuthMetrics)(nil)
