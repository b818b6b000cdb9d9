package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		wsConnections,
		wsFramesIn,
		wsEventsDelivered,
		wsEventsDropped,
	)
}

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Number of live websocket connections.",
		},
	)

	wsFramesIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_frames_in",
			Help: "Inbound frames by type (user_message/create_session/malformed).",
		},
		[]string{"type"},
	)

	wsEventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_delivered",
			Help: "Outbound events delivered to a registered connection, by type.",
		},
		[]string{"type"},
	)

	wsEventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_dropped",
			Help: "Outbound events dropped (no channel or send failure), by type.",
		},
		[]string{"type"},
	)
)

func ConnOpened()               { wsConnections.Inc() }
func ConnClosed()               { wsConnections.Dec() }
func IncFrame(kind string)      { wsFramesIn.WithLabelValues(norm(kind)).Inc() }
func EventDelivered(typ string) { wsEventsDelivered.WithLabelValues(norm(typ)).Inc() }
func EventDropped(typ string)   { wsEventsDropped.WithLabelValues(norm(typ)).Inc() }
