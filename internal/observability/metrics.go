package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	engagementEvents      *CounterVec
	engagementTransitions *CounterVec
	engagementConflicts   *Counter
	engagementLatency     *HistogramVec

	draftOutcomes *CounterVec
	draftFlags    *CounterVec
	draftLatency  *HistogramVec
	draftReviews  *CounterVec
	draftSends    *CounterVec

	templatePublishes *CounterVec

	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	scrapeInterval time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process metrics, or nil when metrics are disabled.
// Every method is a no-op on a nil receiver.
func Current() *Metrics {
	return instance
}

// Init enables process metrics once. Later calls return the same instance.
func Init(log *logger.Logger, scrapeInterval time.Duration) *Metrics {
	initOnce.Do(func() {
		instance = New(scrapeInterval)
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered metrics set; tests use it directly.
func New(scrapeInterval time.Duration) *Metrics {
	if scrapeInterval <= 0 {
		scrapeInterval = 10 * time.Second
	}
	return &Metrics{
		apiRequests: NewCounterVec("outreach_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"outreach_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("outreach_api_inflight_requests", "In-flight API requests."),

		llmRequests: NewCounterVec("outreach_llm_requests_total", "Generation provider requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency: NewHistogramVec(
			"outreach_llm_request_duration_seconds",
			"Generation provider latency in seconds.",
			[]string{"model", "endpoint", "status"},
			[]float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 45, 60, 120},
		),
		llmTokens: NewCounterVec("outreach_llm_tokens_total", "Generation provider tokens by model/kind.", []string{"model", "kind"}),

		engagementEvents:      NewCounterVec("outreach_engagement_events_total", "Applied engagement events by type/actor.", []string{"event_type", "triggered_by"}),
		engagementTransitions: NewCounterVec("outreach_engagement_transitions_total", "Engagement state transitions.", []string{"from", "to"}),
		engagementConflicts:   NewCounter("outreach_engagement_conflicts_total", "Engagement writes rejected by the version guard."),
		engagementLatency: NewHistogramVec(
			"outreach_engagement_apply_duration_seconds",
			"ApplyEvent latency in seconds by outcome.",
			[]string{"outcome"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		),

		draftOutcomes: NewCounterVec("outreach_draft_generations_total", "Draft generation outcomes.", []string{"state", "outcome"}),
		draftFlags:    NewCounterVec("outreach_draft_flags_total", "Lint flags raised on stored drafts.", []string{"flag"}),
		draftLatency: NewHistogramVec(
			"outreach_draft_generation_duration_seconds",
			"Draft generation latency in seconds by outcome.",
			[]string{"outcome"},
			[]float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		),
		draftReviews: NewCounterVec("outreach_draft_reviews_total", "Draft review decisions.", []string{"decision"}),
		draftSends:   NewCounterVec("outreach_draft_sends_total", "Draft delivery attempts by status.", []string{"status"}),

		templatePublishes: NewCounterVec("outreach_template_publishes_total", "Published template versions by stage.", []string{"stage"}),

		aggregateLatency: NewHistogramVec(
			"outreach_aggregate_operation_duration_seconds",
			"Aggregate write latency in seconds by operation/status.",
			[]string{"operation", "status"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		),
		aggregateConflicts: NewCounterVec("outreach_aggregate_conflicts_total", "Aggregate writes that ended in a conflict.", []string{"operation"}),
		aggregateRetries:   NewCounterVec("outreach_aggregate_retryable_total", "Aggregate writes that ended in a retryable failure.", []string{"operation"}),

		dbStats:   NewGaugeVec("outreach_db_pool", "Database pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("outreach_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing: NewGauge("outreach_redis_ping_seconds", "Redis ping latency in seconds."),

		scrapeInterval: scrapeInterval,
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.engagementEvents, m.engagementTransitions, m.engagementConflicts, m.engagementLatency,
		m.draftOutcomes, m.draftFlags, m.draftLatency, m.draftReviews, m.draftSends,
		m.templatePublishes,
		m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(orUnknown(method), orUnknown(route), orDefault(status, "0"))
	m.apiLatency.Observe(dur.Seconds(), orUnknown(method), orUnknown(route), orDefault(status, "0"))
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model, endpoint, status = orUnknown(model), orUnknown(endpoint), orDefault(status, "0")
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// ObserveEngagement records one ApplyEvent call. outcome is "applied", "conflict",
// "not_found", "invalid" or "error".
func (m *Metrics) ObserveEngagement(eventType, triggeredBy, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	outcome = orUnknown(outcome)
	m.engagementLatency.Observe(dur.Seconds(), outcome)
	switch outcome {
	case "applied":
		m.engagementEvents.Inc(orUnknown(eventType), orUnknown(triggeredBy))
	case "conflict":
		m.engagementConflicts.Inc()
	}
}

func (m *Metrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.engagementTransitions.Inc(orUnknown(from), orUnknown(to))
}

func (m *Metrics) ObserveDraftGeneration(state, outcome string, dur time.Duration, flags []string) {
	if m == nil {
		return
	}
	outcome = orUnknown(outcome)
	m.draftOutcomes.Inc(orUnknown(state), outcome)
	m.draftLatency.Observe(dur.Seconds(), outcome)
	for _, f := range flags {
		m.draftFlags.Inc(f)
	}
}

func (m *Metrics) IncDraftReview(decision string) {
	if m == nil {
		return
	}
	m.draftReviews.Inc(orUnknown(decision))
}

func (m *Metrics) IncDraftSend(status string) {
	if m == nil {
		return
	}
	m.draftSends.Inc(orUnknown(status))
}

func (m *Metrics) IncTemplatePublish(stage string) {
	if m == nil {
		return
	}
	m.templatePublishes.Inc(orUnknown(stage))
}

func (m *Metrics) ObserveAggregateOperation(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateLatency.Observe(dur.Seconds(), orUnknown(operation), orUnknown(status))
}

func (m *Metrics) IncAggregateConflict(operation string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(orUnknown(operation))
}

func (m *Metrics) IncAggregateRetry(operation string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(orUnknown(operation))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(v string) string { return orDefault(v, "unknown") }

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}
