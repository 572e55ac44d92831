package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PlaceOrderMetrics содержит метрики протокола подтверждения транзакций.
type PlaceOrderMetrics struct {
	// Счётчики операций
	transactionsStarted   prometheus.Counter
	transactionsConfirmed prometheus.Counter
	contactsUpdated       prometheus.Counter
	confirmRejected       *prometheus.CounterVec
	paymentNosIssued      prometheus.Counter

	// Гистограммы времени выполнения
	confirmDuration prometheus.Histogram
	stepDuration    *prometheus.HistogramVec

	timelineEvents prometheus.Counter

	// Подтверждения в процессе
	confirmsInFlight prometheus.Gauge
}

// NewPlaceOrderMetrics создаёт метрики в реестре по умолчанию.
func NewPlaceOrderMetrics() *PlaceOrderMetrics {
	return NewPlaceOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewPlaceOrderMetricsWithRegisterer создаёт метрики в указанном реестре.
func NewPlaceOrderMetricsWithRegisterer(registerer prometheus.Registerer) *PlaceOrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PlaceOrderMetrics{
		transactionsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "placeorder_transactions_started_total",
			Help: "Total number of place order transactions started",
		}),
		transactionsConfirmed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "placeorder_transactions_confirmed_total",
			Help: "Total number of place order transactions confirmed",
		}),
		contactsUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "placeorder_customer_contacts_updated_total",
			Help: "Total number of customer contact updates",
		}),
		confirmRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "placeorder_confirm_rejected_total",
			Help: "Total number of rejected confirm attempts by error kind",
		}, []string{"kind"}),
		paymentNosIssued: registerCounter(registerer, prometheus.CounterOpts{
			Name: "placeorder_payment_numbers_issued_total",
			Help: "Total number of payment numbers issued",
		}),
		confirmDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "placeorder_confirm_duration_seconds",
			Help:    "Duration of confirm operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "placeorder_confirm_step_duration_seconds",
			Help:    "Duration of individual confirm steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "placeorder_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		confirmsInFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "placeorder_confirms_in_flight",
			Help: "Number of confirm operations in progress",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordTransactionStarted увеличивает счётчик начатых транзакций.
func (m *PlaceOrderMetrics) RecordTransactionStarted() {
	if m == nil {
		return
	}
	m.transactionsStarted.Inc()
}

// RecordContactUpdated увеличивает счётчик обновлений контактов.
func (m *PlaceOrderMetrics) RecordContactUpdated() {
	if m == nil {
		return
	}
	m.contactsUpdated.Inc()
}

// RecordConfirmStarted отмечает начало подтверждения.
func (m *PlaceOrderMetrics) RecordConfirmStarted() {
	if m == nil {
		return
	}
	m.confirmsInFlight.Inc()
}

// RecordConfirmFinished отмечает окончание подтверждения и его длительность.
func (m *PlaceOrderMetrics) RecordConfirmFinished(duration time.Duration) {
	if m == nil {
		return
	}
	m.confirmsInFlight.Dec()
	m.confirmDuration.Observe(duration.Seconds())
}

// RecordTransactionConfirmed увеличивает счётчик подтверждённых транзакций.
func (m *PlaceOrderMetrics) RecordTransactionConfirmed() {
	if m == nil {
		return
	}
	m.transactionsConfirmed.Inc()
}

// RecordConfirmRejected увеличивает счётчик отказов в подтверждении.
func (m *PlaceOrderMetrics) RecordConfirmRejected(kind string) {
	if m == nil {
		return
	}
	m.confirmRejected.WithLabelValues(kind).Inc()
}

// RecordPaymentNoIssued увеличивает счётчик выданных номеров оплаты.
func (m *PlaceOrderMetrics) RecordPaymentNoIssued() {
	if m == nil {
		return
	}
	m.paymentNosIssued.Inc()
}

// RecordStepDuration записывает время выполнения шага подтверждения.
func (m *PlaceOrderMetrics) RecordStepDuration(step string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *PlaceOrderMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}
