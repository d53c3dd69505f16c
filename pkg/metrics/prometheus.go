// Package metrics provides Prometheus metrics for the field display agent.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the display agent.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Channel Metrics - connection lifecycle and message flow
	channelConnects          prometheus.Counter
	channelDisconnects       prometheus.Counter
	channelReconnectAttempts prometheus.Counter
	channelConnected         prometheus.Gauge
	messagesReceived         *prometheus.CounterVec
	messagesUnhandled        prometheus.Counter
	messagesMalformed        prometheus.Counter
	messagesSent             *prometheus.CounterVec
	sendsDropped             prometheus.Counter
	handlerLatency           prometheus.Histogram
	handlerPanics            prometheus.Counter

	// Sequencer Metrics - screen transitions
	transitions        *prometheus.CounterVec
	transitionDuration prometheus.Histogram
	transitionTimeouts prometheus.Counter
	currentScreen      *prometheus.GaugeVec
	contentLoads       *prometheus.CounterVec

	// Queue Metrics - pending screen requests
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Enhanced Error Metrics - Detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fielddisplay",
		subsystem:        "audience",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(base string) string {
	if m.metricPrefix == "" {
		return base
	}
	return m.metricPrefix + "_" + base
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.channelConnects = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("channel_connects_total"),
		Help:        "Total number of successful channel connections",
		ConstLabels: labels,
	})

	m.channelDisconnects = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("channel_disconnects_total"),
		Help:        "Total number of channel closes, for any reason",
		ConstLabels: labels,
	})

	m.channelReconnectAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("channel_reconnect_attempts_total"),
		Help:        "Total number of scheduled reconnect attempts",
		ConstLabels: labels,
	})

	m.channelConnected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("channel_connected"),
		Help:        "1 while the channel is open, 0 otherwise",
		ConstLabels: labels,
	})

	m.messagesReceived = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("messages_received_total"),
			Help:        "Inbound envelopes dispatched to a handler, by type",
			ConstLabels: labels,
		},
		[]string{"type"},
	)

	m.messagesUnhandled = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("messages_unhandled_total"),
		Help:        "Inbound envelopes with no registered handler",
		ConstLabels: labels,
	})

	m.messagesMalformed = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("messages_malformed_total"),
		Help:        "Inbound frames that could not be decoded",
		ConstLabels: labels,
	})

	m.messagesSent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("messages_sent_total"),
			Help:        "Outbound envelopes written to the channel, by type",
			ConstLabels: labels,
		},
		[]string{"type"},
	)

	m.sendsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("sends_dropped_total"),
		Help:        "Outbound envelopes dropped because the channel was not open or the write failed",
		ConstLabels: labels,
	})

	m.handlerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("handler_latency_milliseconds"),
		Help:        "Time spent inside inbound event handlers",
		Buckets:     []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
		ConstLabels: labels,
	})

	m.handlerPanics = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("handler_panics_total"),
		Help:        "Inbound handlers that panicked and were recovered",
		ConstLabels: labels,
	})

	m.transitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("transitions_total"),
			Help:        "Screen transitions completed, by kind (direct, via_hub, noop)",
			ConstLabels: labels,
		},
		[]string{"kind"},
	)

	m.transitionDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("transition_duration_milliseconds"),
		Help:        "Wall time of a full screen transition",
		Buckets:     []float64{50, 100, 250, 500, 1000, 1500, 2000, 3000, 5000, 10000},
		ConstLabels: labels,
	})

	m.transitionTimeouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("transition_timeouts_total"),
		Help:        "Transitions abandoned by the optional transition timeout",
		ConstLabels: labels,
	})

	m.currentScreen = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("current_screen"),
			Help:        "1 for the screen currently shown, 0 for the others",
			ConstLabels: labels,
		},
		[]string{"screen"},
	)

	m.contentLoads = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("content_loads_total"),
			Help:        "Side-loaded screen content fetches, by screen and result",
			ConstLabels: labels,
		},
		[]string{"screen", "result"},
	)

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_size"),
		Help:        "Screen requests waiting for the sequencer",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_capacity"),
		Help:        "Maximum number of pending screen requests",
		ConstLabels: labels,
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_enqueue_total"),
		Help:        "Total number of screen requests enqueued",
		ConstLabels: labels,
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_dequeue_total"),
		Help:        "Total number of screen requests handed to the sequencer",
		ConstLabels: labels,
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_enqueue_errors_total"),
		Help:        "Screen requests rejected by a full or closed queue",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of status API requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "Status API request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_component_total"),
			Help:        "Errors by component and error type",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_type_total"),
			Help:        "Errors by type and severity",
			ConstLabels: labels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Errors by HTTP endpoint",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("error_latency_milliseconds"),
			Help:        "Latency of requests that ended in an error",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "Current heap allocation in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Current number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// RecordChannelConnect marks the channel open.
func RecordChannelConnect() {
	if !globalManager.enabled {
		return
	}
	globalManager.channelConnects.Inc()
	globalManager.channelConnected.Set(1)
}

// RecordChannelDisconnect marks the channel closed.
func RecordChannelDisconnect() {
	if !globalManager.enabled {
		return
	}
	globalManager.channelDisconnects.Inc()
	globalManager.channelConnected.Set(0)
}

// RecordReconnectAttempt increments the reconnect attempt counter.
func RecordReconnectAttempt() {
	if !globalManager.enabled {
		return
	}
	globalManager.channelReconnectAttempts.Inc()
}

// RecordMessageReceived counts an inbound envelope dispatched to a handler.
func RecordMessageReceived(msgType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.messagesReceived.WithLabelValues(msgType).Inc()
}

// RecordMessageUnhandled counts an inbound envelope with no handler.
func RecordMessageUnhandled() {
	if !globalManager.enabled {
		return
	}
	globalManager.messagesUnhandled.Inc()
}

// RecordMessageMalformed counts an undecodable inbound frame.
func RecordMessageMalformed() {
	if !globalManager.enabled {
		return
	}
	globalManager.messagesMalformed.Inc()
}

// RecordMessageSent counts an outbound envelope.
func RecordMessageSent(msgType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.messagesSent.WithLabelValues(msgType).Inc()
}

// RecordSendDropped counts an outbound envelope that never reached the wire.
func RecordSendDropped() {
	if !globalManager.enabled {
		return
	}
	globalManager.sendsDropped.Inc()
}

// RecordHandlerLatency records time spent in an inbound handler.
func RecordHandlerLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.handlerLatency.Observe(latencyMs)
}

// RecordHandlerPanic counts a recovered handler panic.
func RecordHandlerPanic() {
	if !globalManager.enabled {
		return
	}
	globalManager.handlerPanics.Inc()
}

// RecordTransition counts a completed transition of the given kind.
func RecordTransition(kind string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.transitions.WithLabelValues(kind).Inc()
	globalManager.transitionDuration.Observe(durationMs)
}

// RecordTransitionTimeout counts a transition abandoned by its timeout.
func RecordTransitionTimeout() {
	if !globalManager.enabled {
		return
	}
	globalManager.transitionTimeouts.Inc()
}

// UpdateCurrentScreen flips the current screen gauge from previous to current.
func UpdateCurrentScreen(previous, current string) {
	if !globalManager.enabled {
		return
	}
	if previous != "" && previous != current {
		globalManager.currentScreen.WithLabelValues(previous).Set(0)
	}
	globalManager.currentScreen.WithLabelValues(current).Set(1)
}

// RecordContentLoad counts a side-loaded content fetch.
func RecordContentLoad(screen, result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.contentLoads.WithLabelValues(screen, result).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error by HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an errored operation.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
