package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bytron_orders_created_total",
		Help: "Orders created, by product.",
	}, []string{"product"})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bytron_payments_confirmed_total",
		Help: "Orders that transitioned to paid.",
	})

	PaymentChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bytron_payment_checks_total",
		Help: "Payment checks, by outcome (paid, pending, error).",
	}, []string{"outcome"})

	ForwardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bytron_forwards_total",
		Help: "Deposit sweep attempts, by result (ok, skipped, failed).",
	}, []string{"result"})

	OracleRateSource = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bytron_oracle_rate_source_total",
		Help: "Rate lookups, by source (live, cache, fallback).",
	}, []string{"source"})

	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bytron_downloads_total",
		Help: "Download requests, by outcome (ok, denied, expired).",
	}, []string{"outcome"})
)
