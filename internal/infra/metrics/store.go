package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		configOpsTotal,
		droppedParagraphsTotal,
	)
}

var (
	configOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_config_ops_total",
			Help: "Config store loads/saves by backend and result.",
		},
		[]string{"backend", "op", "result"},
	)

	droppedParagraphsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_dropped_question_paragraphs_total",
			Help: "Malformed question paragraphs silently dropped during decode.",
		},
	)
)

func IncConfigOp(backend, op, result string) {
	configOpsTotal.WithLabelValues(norm(backend), norm(op), norm(result)).Inc()
}

func AddDroppedParagraphs(n int) {
	if n > 0 {
		droppedParagraphsTotal.Add(float64(n))
	}
}
