package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		commandsReceivedTotal,
		adminCommandsTotal,
	)
}

var (
	commandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_received_total",
			Help: "Counts invoked commands by name.",
		},
		[]string{"command"},
	)

	adminCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_admin_commands_total",
			Help: "Admin-gated command invocations by authorization outcome.",
		},
		[]string{"command", "outcome"},
	)
)

func IncCommand(command string) {
	commandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncAdminCommand(command, outcome string) {
	adminCommandsTotal.WithLabelValues(norm(command), norm(outcome)).Inc()
}
