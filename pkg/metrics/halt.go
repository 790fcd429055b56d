package metrics

import "github.com/prometheus/client_golang/prometheus"

// HaltMetrics counts halt transitions and payment validation outcomes.
type HaltMetrics struct {
	halts      *prometheus.CounterVec
	resumes    *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// NewHaltMetrics registers the pricing-engine counters on the provided registerer.
func NewHaltMetrics(reg prometheus.Registerer) *HaltMetrics {
	if reg == nil {
		return &HaltMetrics{}
	}
	halts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metal_halts_total",
		Help: "Halt transitions by metal symbol and actor.",
	}, []string{"symbol", "actor"})
	resumes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metal_resumes_total",
		Help: "Resume transitions by metal symbol and actor.",
	}, []string{"symbol", "actor"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_rejections_total",
		Help: "Payment validations rejected, by reason code.",
	}, []string{"reason"})
	reg.MustRegister(halts, resumes, rejections)
	return &HaltMetrics{halts: halts, resumes: resumes, rejections: rejections}
}

// IncHalt records a halt transition.
func (h *HaltMetrics) IncHalt(symbol, actor string) {
	if h == nil || h.halts == nil {
		return
	}
	h.halts.WithLabelValues(normalizeLabel(symbol), normalizeLabel(actor)).Inc()
}

// IncResume records a resume transition.
func (h *HaltMetrics) IncResume(symbol, actor string) {
	if h == nil || h.resumes == nil {
		return
	}
	h.resumes.WithLabelValues(normalizeLabel(symbol), normalizeLabel(actor)).Inc()
}

// IncPaymentRejection records a rejected payment validation.
func (h *HaltMetrics) IncPaymentRejection(reason string) {
	if h == nil || h.rejections == nil {
		return
	}
	h.rejections.WithLabelValues(normalizeLabel(reason)).Inc()
}
