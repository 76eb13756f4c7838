// Package metrics collects and exposes Prometheus metrics for the security core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records security-core counters. All methods are nil-safe so
// packages can carry an optional *Collector without guarding every call.
type Collector struct {
	loginSuccess   prometheus.Counter
	loginFail      prometheus.Counter
	loginThrottled prometheus.Counter

	wsAccepted prometheus.Counter
	wsRefused  *prometheus.CounterVec

	framesRejected *prometheus.CounterVec
	broadcasts     prometheus.Counter

	replayDiscarded *prometheus.CounterVec
}

// NewCollector constructs a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scb_login_success_total",
			Help: "Successful credential verifications on login.",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scb_login_fail_total",
			Help: "Rejected logins (bad credentials or malformed stored hash).",
		}),
		loginThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scb_login_throttled_total",
			Help: "Logins refused by the per-address attempt ledger.",
		}),
		wsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scb_ws_accepted_total",
			Help: "Websocket connections admitted by the gateway.",
		}),
		wsRefused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scb_ws_refused_total",
			Help: "Websocket connections refused, by reason.",
		}, []string{"reason"}),
		framesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scb_ws_frames_rejected_total",
			Help: "Inbound frames rejected, by reason.",
		}, []string{"reason"}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scb_ws_broadcasts_total",
			Help: "Signed comment events broadcast to authenticated clients.",
		}),
		replayDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scb_replay_discarded_total",
			Help: "Consumer-side events discarded, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.loginThrottled,
		c.wsAccepted,
		c.wsRefused,
		c.framesRejected,
		c.broadcasts,
		c.replayDiscarded,
	)

	return c
}

// LoginSuccess records a successful login.
func (c *Collector) LoginSuccess() {
	if c == nil {
		return
	}
	c.loginSuccess.Inc()
}

// LoginFail records a rejected login.
func (c *Collector) LoginFail() {
	if c == nil {
		return
	}
	c.loginFail.Inc()
}

// LoginThrottled records a login refused by the attempt ledger.
func (c *Collector) LoginThrottled() {
	if c == nil {
		return
	}
	c.loginThrottled.Inc()
}

// WSAccepted records an admitted websocket connection.
func (c *Collector) WSAccepted() {
	if c == nil {
		return
	}
	c.wsAccepted.Inc()
}

// WSRefused records a refused websocket connection.
func (c *Collector) WSRefused(reason string) {
	if c == nil {
		return
	}
	c.wsRefused.WithLabelValues(reason).Inc()
}

// FrameRejected records a rejected inbound frame.
func (c *Collector) FrameRejected(reason string) {
	if c == nil {
		return
	}
	c.framesRejected.WithLabelValues(reason).Inc()
}

// Broadcast records one comment-event broadcast.
func (c *Collector) Broadcast() {
	if c == nil {
		return
	}
	c.broadcasts.Inc()
}

// ReplayDiscarded records a consumer-side discard.
func (c *Collector) ReplayDiscarded(reason string) {
	if c == nil {
		return
	}
	c.replayDiscarded.WithLabelValues(reason).Inc()
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
