package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthOps counts gateway operations by name and outcome (the outcome label
// is "ok" or the error kind).
var AuthOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "authgate_operations_total",
	Help: "Gateway operations by name and outcome.",
}, []string{"op", "outcome"})

// MailSent counts dispatched emails by kind and outcome.
var MailSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "authgate_mail_sent_total",
	Help: "Emails dispatched by kind and outcome.",
}, []string{"kind", "outcome"})

func MetricsHandler() http.Handler { return promhttp.Handler() }
