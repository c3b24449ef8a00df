package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	recommendationRequestedTotal atomic.Uint64
	recommendationResolvedTotal  atomic.Uint64
	clarificationTotal           atomic.Uint64
	recommendationFailedTotal    atomic.Uint64
	fallbackTotal                atomic.Uint64
	documentExtractedTotal       atomic.Uint64

	resolvedByPlatform = newLabeledCounter("platform")

	recommendationDuration = newHistogram([]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000})
)

// IncRecommendationRequested increments the requested counter.
func IncRecommendationRequested() {
	recommendationRequestedTotal.Add(1)
}

// IncRecommendationResolved counts a resolved recommendation for platform.
func IncRecommendationResolved(platform string) {
	recommendationResolvedTotal.Add(1)
	resolvedByPlatform.Inc(platform)
}

// IncClarification counts a clarification request outcome.
func IncClarification() {
	clarificationTotal.Add(1)
}

// IncRecommendationFailed increments the failed counter.
func IncRecommendationFailed() {
	recommendationFailedTotal.Add(1)
}

// IncFallback counts a recommendation that used any fallback path.
func IncFallback() {
	fallbackTotal.Add(1)
}

// IncDocumentExtracted counts requirement documents converted to text.
func IncDocumentExtracted() {
	documentExtractedTotal.Add(1)
}

// ObserveRecommendationDurationMs records an engine run in milliseconds.
func ObserveRecommendationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	recommendationDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "recommendation_requested_total", "Total recommendation requests", recommendationRequestedTotal.Load())
	writeCounter(&buf, "recommendation_resolved_total", "Total resolved recommendations", recommendationResolvedTotal.Load())
	writeCounter(&buf, "recommendation_clarification_total", "Total clarification requests returned", clarificationTotal.Load())
	writeCounter(&buf, "recommendation_failed_total", "Total failed recommendation requests", recommendationFailedTotal.Load())
	writeCounter(&buf, "recommendation_fallback_total", "Total recommendations built on a fallback path", fallbackTotal.Load())
	writeCounter(&buf, "document_extracted_total", "Total requirement documents converted to text", documentExtractedTotal.Load())
	writeLabeledCounter(&buf, "recommendation_resolved_by_platform_total", "Resolved recommendations per platform", resolvedByPlatform)
	writeHistogram(&buf, "recommendation_duration_ms", "Recommendation engine duration in milliseconds", recommendationDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	label  string
	mu     sync.Mutex
	counts map[string]uint64
}

func newLabeledCounter(label string) *labeledCounter {
	return &labeledCounter{label: label, counts: map[string]uint64{}}
}

func (l *labeledCounter) Inc(value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[value]++
}

func (l *labeledCounter) snapshot() ([]string, map[string]uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, len(l.counts))
	out := make(map[string]uint64, len(l.counts))
	for k, v := range l.counts {
		keys = append(keys, k)
		out[k] = v
	}
	sort.Strings(keys)
	return keys, out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket whose bound holds it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help string, c *labeledCounter) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys, counts := c.snapshot()
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, c.label, k, counts[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the milliseconds elapsed since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
