package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"xray-ip-diag/internal/domain"
)

// Module provides the metrics collector
var Module = fx.Options(
	fx.Provide(NewCollector),
	fx.Provide(func(c *Collector) domain.MetricsCollector { return c }),
)

// Collector keeps the counters of a single diagnostic run in its own
// registry.
type Collector struct {
	logger        *zap.Logger
	registry      *prometheus.Registry
	stepsTotal    *prometheus.CounterVec
	launchesTotal *prometheus.CounterVec
	probeAttempts *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	processStops  *prometheus.CounterVec
}

func NewCollector(logger *zap.Logger) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		logger:   logger.With(zap.String("component", "metrics")),
		registry: registry,
		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xray_diag_steps_total",
				Help: "Total number of diagnostic steps by outcome",
			},
			[]string{"step", "status"},
		),
		launchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xray_diag_launches_total",
				Help: "Total number of xray launches by result",
			},
			[]string{"result"},
		),
		probeAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xray_diag_probe_attempts_total",
				Help: "Total number of probe requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		probeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xray_diag_probe_duration_seconds",
				Help:    "Duration of probe requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		processStops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xray_diag_process_stops_total",
				Help: "Total number of xray process stops by method",
			},
			[]string{"method"},
		),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordStep(step string, status string) {
	c.stepsTotal.WithLabelValues(step, status).Inc()
}

func (c *Collector) RecordLaunch(result string) {
	c.launchesTotal.WithLabelValues(result).Inc()
}

func (c *Collector) RecordProbeAttempt(attempt domain.ProbeAttempt) {
	outcome := string(attempt.Failure)
	if attempt.Succeeded() {
		outcome = "success"
	}
	c.probeAttempts.WithLabelValues(attempt.Endpoint.Name, outcome).Inc()
	c.probeDuration.WithLabelValues(attempt.Endpoint.Name).Observe(attempt.Duration.Seconds())
}

func (c *Collector) RecordStop(method domain.StopMethod) {
	if method == domain.StopNotStarted {
		return
	}
	c.processStops.WithLabelValues(string(method)).Inc()
}

// ProbeStats reads the probe counters back from the registry, one entry per
// endpoint sorted by name.
func (c *Collector) ProbeStats() []domain.EndpointStats {
	families, err := c.registry.Gather()
	if err != nil {
		c.logger.Debug("failed to gather metrics", zap.Error(err))
		return nil
	}

	byEndpoint := make(map[string]*domain.EndpointStats)
	entry := func(name string) *domain.EndpointStats {
		stats, ok := byEndpoint[name]
		if !ok {
			stats = &domain.EndpointStats{Endpoint: name}
			byEndpoint[name] = stats
		}
		return stats
	}

	for _, family := range families {
		switch family.GetName() {
		case "xray_diag_probe_attempts_total":
			for _, metric := range family.GetMetric() {
				stats := entry(labelValue(metric.GetLabel(), "endpoint"))
				count := int(metric.GetCounter().GetValue())
				stats.Attempts += count
				if labelValue(metric.GetLabel(), "outcome") == "success" {
					stats.Succeeded += count
				}
			}
		case "xray_diag_probe_duration_seconds":
			for _, metric := range family.GetMetric() {
				stats := entry(labelValue(metric.GetLabel(), "endpoint"))
				seconds := metric.GetHistogram().GetSampleSum()
				stats.Duration += time.Duration(seconds * float64(time.Second))
			}
		}
	}

	result := make([]domain.EndpointStats, 0, len(byEndpoint))
	for _, stats := range byEndpoint {
		result = append(result, *stats)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Endpoint < result[j].Endpoint
	})
	return result
}

func labelValue(labels []*dto.LabelPair, name string) string {
	for _, label := range labels {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}

// LogSummary writes every non-zero counter of the run at debug level.
func (c *Collector) LogSummary() {
	families, err := c.registry.Gather()
	if err != nil {
		c.logger.Debug("failed to gather metrics", zap.Error(err))
		return
	}

	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			fields := make([]zap.Field, 0, len(metric.GetLabel())+1)
			for _, label := range metric.GetLabel() {
				fields = append(fields, zap.String(label.GetName(), label.GetValue()))
			}
			if counter := metric.GetCounter(); counter != nil {
				fields = append(fields, zap.Float64("value", counter.GetValue()))
			} else if histogram := metric.GetHistogram(); histogram != nil {
				fields = append(fields, zap.Uint64("count", histogram.GetSampleCount()),
					zap.Float64("sum", histogram.GetSampleSum()))
			}
			c.logger.Debug(family.GetName(), fields...)
		}
	}
}
