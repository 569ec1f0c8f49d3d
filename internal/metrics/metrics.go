package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "randevu"

var (
	once sync.Once

	lastVersion atomic.Int64
	versionMu   sync.Mutex

	validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Count of validation outcomes by result and rejection code.",
		},
		[]string{"result", "code"},
	)

	writes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_writes_total",
			Help:      "Count of committed reservation writes by operation.",
		},
		[]string{"op"},
	)

	gateWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gate_wait_seconds",
			Help:      "Time spent waiting for the write gate.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
		[]string{"acquired"},
	)

	availability = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_requests_total",
			Help:      "Count of day availability computations by source.",
		},
		[]string{"source"},
	)

	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Count of reservation store failures by operation.",
		},
		[]string{"op"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	dataVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "data_version",
			Help:      "Last committed reservation data version.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(validations, writes, gateWait, availability, storeErrors, httpRequests, dataVersion)
	})
}

func IncValidation(valid bool, code string) {
	result := "accepted"
	if !valid {
		result = "rejected"
	}
	validations.WithLabelValues(result, code).Inc()
}

func IncWrite(op string) {
	writes.WithLabelValues(op).Inc()
}

func ObserveGateWait(waited time.Duration, acquired bool) {
	label := "true"
	if !acquired {
		label = "false"
	}
	gateWait.WithLabelValues(label).Observe(waited.Seconds())
}

func IncAvailability(source string) {
	availability.WithLabelValues(source).Inc()
}

func IncStoreError(op string) {
	storeErrors.WithLabelValues(op).Inc()
}

// SetDataVersion raises the gauge to v. Events may arrive out of order, so a lower
// version is ignored.
func SetDataVersion(v int64) {
	for {
		cur := lastVersion.Load()
		if v <= cur {
			return
		}
		if lastVersion.CompareAndSwap(cur, v) {
			break
		}
	}
	versionMu.Lock()
	defer versionMu.Unlock()
	// A newer writer may have raced past us between the swap and the lock.
	dataVersion.Set(float64(lastVersion.Load()))
}

func IncHTTP(route string, status int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
