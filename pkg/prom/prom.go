package prom

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	xhttp "github.com/rankitpro/review-followup/pkg/http"
	"github.com/rankitpro/review-followup/pkg/logger"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemFollowUp = "followup"
	SystemDispatch = "dispatch"
)

const (
	MetricDecisions           = "decisions_total"
	MetricEventsAdmission     = "events_admission_total"
	MetricIntegrityViolations = "integrity_violations_total"
	MetricPassDuration        = "pass_duration_seconds"
	MetricEnqueued            = "enqueued_total"
	MetricStagesSent          = "stages_sent_total"
	MetricSendDelay           = "send_delay_seconds"

	MetricQueueDepth       = "queue_depth"
	MetricDispatchAttempts = "attempts_total"
	MetricDispatchFailures = "failures_total"
	MetricDispatchDuration = "duration_seconds"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var MetricCollectionCounters = make(map[string]prometheus.Counter)
var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionGaugeVec = make(map[string]*prometheus.GaugeVec)
var MetricCollectionHistogram = make(map[string]prometheus.Histogram)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

func Create(host string, env string, nameSpace string) error {
	defaultLabels = make(prometheus.Labels)
	defaultLabels["env"] = env
	defaultLabels["instance"] = host
	namespace = nameSpace
	MetricSystemEnabled = true

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounterVec(SystemFollowUp, MetricDecisions, []string{"action"}))
	hasError(createCounterVec(SystemFollowUp, MetricEventsAdmission, []string{"result"}))
	hasError(createCounter(SystemFollowUp, MetricIntegrityViolations))
	hasError(createHistogram(SystemFollowUp, MetricPassDuration))
	hasError(createCounterVec(SystemFollowUp, MetricEnqueued, []string{"stage"}))
	hasError(createCounterVec(SystemFollowUp, MetricStagesSent, []string{"stage"}))
	hasError(createHistogramVec(SystemFollowUp, MetricSendDelay, []string{"stage"}))

	hasError(createGaugeVec(SystemDispatch, MetricQueueDepth, []string{"queue", "kind"}))
	hasError(createCounterVec(SystemDispatch, MetricDispatchAttempts, []string{"channel", "provider"}))
	hasError(createCounterVec(SystemDispatch, MetricDispatchFailures, []string{"channel", "provider"}))
	hasError(createHistogramVec(SystemDispatch, MetricDispatchDuration, []string{"channel"}))

	return err
}

func ListenAndServer(port string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer()
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "url", url)
	if err := s.ListenAndServe(port); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func createCounter(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounters[subsystem+name] = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	})
	return prometheus.Register(MetricCollectionCounters[subsystem+name])
}

func createCounterVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounterVec[subsystem+name] = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionCounterVec[subsystem+name])
}

func createHistogram(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogram[subsystem+name] = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
		Buckets:     prometheus.DefBuckets,
	})
	return prometheus.Register(MetricCollectionHistogram[subsystem+name])
}

func createHistogramVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogramVec[subsystem+name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionHistogramVec[subsystem+name])
}

func createGaugeVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()

	MetricCollectionGaugeVec[subsystem+name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        "",
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionGaugeVec[subsystem+name])
}

func IncCounter(subsystem, name string) {
	AddCounter(subsystem, name, 1)
}

func AddCounter(subsystem, name string, number float64) {
	if MetricSystemEnabled == false {
		return
	}
	if v, ok := MetricCollectionCounters[subsystem+name]; ok {
		v.Add(number)
		return
	}
	logger.Warn("[metrics-server] counter not found", "subsystem", subsystem, "name", name)
}

func SetGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if MetricSystemEnabled == false {
		return
	}
	if v, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Set(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if MetricSystemEnabled == false {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddHistogram(subsystem, name string, number float64) {
	if MetricSystemEnabled == false {
		return
	}
	if v, ok := MetricCollectionHistogram[subsystem+name]; ok {
		v.Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram not found", "subsystem", subsystem, "name", name)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if MetricSystemEnabled == false {
		return
	}
	if v, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

// follow-up helpers

func RecordDecision(action string) {
	IncCounterVec(SystemFollowUp, MetricDecisions, action)
}

func RecordAdmission(result string) {
	IncCounterVec(SystemFollowUp, MetricEventsAdmission, result)
}

func RecordIntegrityViolation() {
	IncCounter(SystemFollowUp, MetricIntegrityViolations)
}

func ObservePassDuration(seconds float64) {
	AddHistogram(SystemFollowUp, MetricPassDuration, seconds)
}

func RecordEnqueued(stage string) {
	IncCounterVec(SystemFollowUp, MetricEnqueued, stage)
}

// RecordStageSent counts a committed stage and how late it went out relative to its due time.
func RecordStageSent(stage string, delaySeconds float64) {
	IncCounterVec(SystemFollowUp, MetricStagesSent, stage)
	AddHistogramVec(SystemFollowUp, MetricSendDelay, delaySeconds, stage)
}

// RecordQueueDepth exports the stream length and the pending entry count.
func RecordQueueDepth(queue string, total, pending int64) {
	SetGaugeVec(SystemDispatch, MetricQueueDepth, float64(total), queue, "total")
	SetGaugeVec(SystemDispatch, MetricQueueDepth, float64(pending), queue, "pending")
}

func RecordDispatch(channel, provider string, ok bool, seconds float64) {
	IncCounterVec(SystemDispatch, MetricDispatchAttempts, channel, provider)
	if !ok {
		IncCounterVec(SystemDispatch, MetricDispatchFailures, channel, provider)
	}
	AddHistogramVec(SystemDispatch, MetricDispatchDuration, seconds, channel)
}
