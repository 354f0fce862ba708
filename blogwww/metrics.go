// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/decred/dcrblog/blogwww/mail"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "blogwww"

// metrics contains the prometheus collectors of the web server.
type metrics struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	mailSent     *prometheus.CounterVec
}

// newMetrics returns a new metrics context with all collectors registered.
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method", "route"},
		),
		mailSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "mail",
				Name:      "sent_total",
				Help:      "Total number of email send attempts.",
			},
			[]string{"kind", "result"},
		),
	}
	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.mailSent,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// handler returns the http handler that exposes the registered metrics.
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder records the status code that is written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// routeTemplate returns the path template of the matched route so that the
// metrics are not labeled with IDs and tokens.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unknown"
	}
	t, err := route.GetPathTemplate()
	if err != nil {
		return "unknown"
	}
	return t
}

// middleware records the count and the duration of the requests.
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		m.httpRequests.WithLabelValues(r.Method, route,
			strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).
			Observe(time.Since(start).Seconds())
	})
}

// instrumentedMailer is a mail.Mailer that counts the sent emails.
type instrumentedMailer struct {
	mail.Mailer
	sent *prometheus.CounterVec
}

var _ mail.Mailer = (*instrumentedMailer)(nil)

// instrumentMailer wraps the mailer with the mail metrics.
func (m *metrics) instrumentMailer(mailer mail.Mailer) mail.Mailer {
	return &instrumentedMailer{
		Mailer: mailer,
		sent:   m.mailSent,
	}
}

// sendResult returns the result label of a send attempt.
func sendResult(err error) string {
	var de mail.DeliveryError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &de):
		return "delivery_error"
	}
	return "error"
}

// SendTo satisfies the mail.Mailer interface.
func (i *instrumentedMailer) SendTo(subject, body string, recipients []string) error {
	err := i.Mailer.SendTo(subject, body, recipients)
	if i.Mailer.IsEnabled() {
		i.sent.WithLabelValues("operator", sendResult(err)).Inc()
	}
	return err
}

// SendToUsers satisfies the mail.Mailer interface.
func (i *instrumentedMailer) SendToUsers(subject, body string, recipients map[uuid.UUID]string) error {
	err := i.Mailer.SendToUsers(subject, body, recipients)
	if i.Mailer.IsEnabled() {
		i.sent.WithLabelValues("user", sendResult(err)).Inc()
	}
	return err
}
