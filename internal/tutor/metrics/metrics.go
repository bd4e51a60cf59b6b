// Package metrics 收集辅导服务的业务指标，以 Prometheus 格式或 JSON 导出。
package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "tutor"
	subsystem = "rag"
)

// latencyBuckets 检索与重排序耗时分桶（秒）。
var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// TutorMetrics 辅导服务业务指标。每个实例持有独立的注册表。
type TutorMetrics struct {
	registry *prometheus.Registry

	// 提问指标
	asksTotal   prometheus.Counter
	asksErrors  prometheus.Counter
	asksByScope *prometheus.CounterVec

	// 检索指标
	retrievalTotal    prometheus.Counter
	retrievalErrors   prometheus.Counter
	retrievalEmpty    prometheus.Counter
	retrievalResults  prometheus.Counter
	retrievalDuration prometheus.Histogram

	// 重排序指标
	rerankTotal    prometheus.Counter
	rerankErrors   prometheus.Counter
	rerankDuration prometheus.Histogram

	// 向量重建指标
	stepsEmbedded  prometheus.Counter
	chunksEmbedded prometheus.Counter
	embedErrors    prometheus.Counter
}

var (
	globalTutorMetrics *TutorMetrics
	tutorMetricsOnce   sync.Once
)

// GetTutorMetrics 获取全局指标实例，额外注册 Go 运行时与进程指标。
func GetTutorMetrics() *TutorMetrics {
	tutorMetricsOnce.Do(func() {
		globalTutorMetrics = New()
		globalTutorMetrics.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return globalTutorMetrics
}

// New 创建独立的指标实例。
func New() *TutorMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	start := time.Now()

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
			Buckets: latencyBuckets,
		})
	}

	m := &TutorMetrics{
		registry:   reg,
		asksTotal:  counter("asks_total", "Total number of tutor questions."),
		asksErrors: counter("asks_errors_total", "Number of questions that failed before streaming."),
		asksByScope: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "asks_by_scope_total", Help: "Answered questions per scope.",
		}, []string{"scope"}),

		retrievalTotal:    counter("retrieval_total", "Total number of similarity searches."),
		retrievalErrors:   counter("retrieval_errors_total", "Number of failed similarity searches."),
		retrievalEmpty:    counter("retrieval_empty_total", "Similarity searches without any match."),
		retrievalResults:  counter("retrieval_results_total", "Chunks returned by similarity searches."),
		retrievalDuration: histogram("retrieval_duration_seconds", "Similarity search latency."),

		rerankTotal:    counter("rerank_total", "Total number of rerank calls."),
		rerankErrors:   counter("rerank_errors_total", "Number of failed rerank calls."),
		rerankDuration: histogram("rerank_duration_seconds", "Rerank latency."),

		stepsEmbedded:  counter("steps_embedded_total", "Steps whose embeddings were rebuilt."),
		chunksEmbedded: counter("chunks_embedded_total", "Chunks written by embedding rebuilds."),
		embedErrors:    counter("embed_errors_total", "Number of failed step embedding rebuilds."),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "uptime_seconds", Help: "Service uptime in seconds.",
	}, func() float64 { return time.Since(start).Seconds() })

	return m
}

// RecordAsk 记录一次提问。scope 为空表示请求未通过校验。
func (m *TutorMetrics) RecordAsk(scope string, err error) {
	m.asksTotal.Inc()
	if err != nil {
		m.asksErrors.Inc()
		return
	}
	if scope != "" {
		m.asksByScope.WithLabelValues(scope).Inc()
	}
}

// RecordRetrieval 记录一次向量检索及其命中数，仅成功的检索计入耗时。
func (m *TutorMetrics) RecordRetrieval(duration time.Duration, results int, err error) {
	m.retrievalTotal.Inc()
	if err != nil {
		m.retrievalErrors.Inc()
		return
	}
	if results == 0 {
		m.retrievalEmpty.Inc()
	}
	m.retrievalResults.Add(float64(results))
	m.retrievalDuration.Observe(duration.Seconds())
}

// RecordRerank 记录一次重排序。
func (m *TutorMetrics) RecordRerank(duration time.Duration, err error) {
	m.rerankTotal.Inc()
	if err != nil {
		m.rerankErrors.Inc()
		return
	}
	m.rerankDuration.Observe(duration.Seconds())
}

// RecordEmbedding 记录一次步骤向量重建。
func (m *TutorMetrics) RecordEmbedding(chunks int, err error) {
	if err != nil {
		m.embedErrors.Inc()
		return
	}
	m.stepsEmbedded.Inc()
	m.chunksEmbedded.Add(float64(chunks))
}

// Handler 返回 Prometheus 抓取端点。
func (m *TutorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// snapshot 从注册表读出的当前值，名称去掉命名空间前缀。
type snapshot struct {
	values map[string]float64
	sums   map[string]float64
	counts map[string]uint64
	scopes map[string]uint64
}

func (m *TutorMetrics) snapshot() snapshot {
	s := snapshot{
		values: make(map[string]float64),
		sums:   make(map[string]float64),
		counts: make(map[string]uint64),
		scopes: make(map[string]uint64),
	}
	prefix := namespace + "_" + subsystem + "_"

	// Gather 出错时仍返回已收集的部分
	families, _ := m.registry.Gather()
	for _, mf := range families {
		name, ok := strings.CutPrefix(mf.GetName(), prefix)
		if !ok {
			continue
		}
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetHistogram() != nil:
				s.sums[name] = metric.GetHistogram().GetSampleSum()
				s.counts[name] = metric.GetHistogram().GetSampleCount()
			case metric.GetGauge() != nil:
				s.values[name] = metric.GetGauge().GetValue()
			case name == "asks_by_scope_total":
				for _, lp := range metric.GetLabel() {
					if lp.GetName() == "scope" {
						s.scopes[lp.GetValue()] = uint64(metric.GetCounter().GetValue())
					}
				}
			case metric.GetCounter() != nil:
				s.values[name] = metric.GetCounter().GetValue()
			}
		}
	}
	return s
}

func (s snapshot) count(name string) uint64 {
	return uint64(s.values[name])
}

func (s snapshot) avg(name string) float64 {
	if s.counts[name] == 0 {
		return 0
	}
	return s.sums[name] / float64(s.counts[name])
}

// Stats 返回当前统计信息，数值与 Prometheus 端点读自同一组采集器。
func (m *TutorMetrics) Stats() map[string]any {
	s := m.snapshot()

	return map[string]any{
		"asks": map[string]any{
			"total":    s.count("asks_total"),
			"errors":   s.count("asks_errors_total"),
			"by_scope": s.scopes,
		},
		"retrieval": map[string]any{
			"total":             s.count("retrieval_total"),
			"errors":            s.count("retrieval_errors_total"),
			"empty":             s.count("retrieval_empty_total"),
			"results":           s.count("retrieval_results_total"),
			"avg_duration_secs": s.avg("retrieval_duration_seconds"),
		},
		"rerank": map[string]any{
			"total":             s.count("rerank_total"),
			"errors":            s.count("rerank_errors_total"),
			"avg_duration_secs": s.avg("rerank_duration_seconds"),
		},
		"embedding": map[string]any{
			"steps":  s.count("steps_embedded_total"),
			"chunks": s.count("chunks_embedded_total"),
			"errors": s.count("embed_errors_total"),
		},
		"uptime_seconds": s.values["uptime_seconds"],
	}
}
