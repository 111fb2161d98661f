package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics tracks cashier-facing payment and refund outcomes.
type BillingMetrics struct {
	chargesCreated *prometheus.CounterVec
	paymentsTotal  *prometheus.CounterVec
	paymentAmount  *prometheus.HistogramVec
	refundsTotal   *prometheus.CounterVec
	refundAmount   prometheus.Histogram
}

var (
	billingMetricsOnce sync.Once
	billingMetrics     *BillingMetrics
)

func Billing() *BillingMetrics {
	return BillingWithConfig(Config{})
}

func BillingWithConfig(cfg Config) *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetrics = newBillingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return billingMetrics
}

func ResetBillingMetricsForTest() {
	billingMetricsOnce = sync.Once{}
	billingMetrics = nil
}

func newBillingMetrics(registerer prometheus.Registerer, cfg Config) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "mediflow"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	chargesCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "mediflow_charges_created_total",
			Help:        "Total charges materialized by the charge lifecycle manager.",
			ConstLabels: constLabels,
		},
		[]string{"charge_type"},
	)

	paymentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "mediflow_payments_total",
			Help:        "Total payment attempts by method and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"method", "result"}, // result: success | duplicate | conflict | rejected
	)

	paymentAmount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "mediflow_payment_amount",
			Help:        "Collected amount per successful payment.",
			Buckets:     []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
			ConstLabels: constLabels,
		},
		[]string{"method"},
	)

	refundsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "mediflow_refunds_total",
			Help:        "Total refund attempts by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // result: success | rejected
	)

	refundAmount := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "mediflow_refund_amount",
			Help:        "Returned amount per successful refund.",
			Buckets:     []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		chargesCreated,
		paymentsTotal,
		paymentAmount,
		refundsTotal,
		refundAmount,
	)

	return &BillingMetrics{
		chargesCreated: chargesCreated,
		paymentsTotal:  paymentsTotal,
		paymentAmount:  paymentAmount,
		refundsTotal:   refundsTotal,
		refundAmount:   refundAmount,
	}
}

func (m *BillingMetrics) IncChargeCreated(chargeType string) {
	if m == nil {
		return
	}
	m.chargesCreated.WithLabelValues(chargeType).Inc()
}

func (m *BillingMetrics) IncPayment(method, result string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(method, result).Inc()
}

func (m *BillingMetrics) ObservePaymentAmount(method string, amount float64) {
	if m == nil {
		return
	}
	if amount < 0 {
		amount = 0
	}
	m.paymentAmount.WithLabelValues(method).Observe(amount)
}

func (m *BillingMetrics) IncRefund(result string) {
	if m == nil {
		return
	}
	m.refundsTotal.WithLabelValues(result).Inc()
}

func (m *BillingMetrics) ObserveRefundAmount(amount float64) {
	if m == nil {
		return
	}
	if amount < 0 {
		amount = 0
	}
	m.refundAmount.Observe(amount)
}
