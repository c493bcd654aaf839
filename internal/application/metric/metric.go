package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Количество активных WebSocket соединений",
		},
	)

	wsSlowConsumers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_slow_consumers_total",
			Help: "Соединения, закрытые из-за переполнения очереди отправки",
		},
	)

	roomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_rooms_active",
			Help: "Количество комнат, загруженных в память",
		},
	)

	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_commands_total",
			Help: "Команды комнат по типу и результату",
		},
		[]string{"command", "result"},
	)

	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_command_duration_seconds",
			Help:    "Время применения команды актором комнаты",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"command"},
	)

	adsRequiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_ads_required_total",
			Help: "Сколько раз политика потребовала рекламу",
		},
		[]string{"tier"},
	)

	boostsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_boosts_active",
			Help: "Комнаты с активным бустом",
		},
	)
)

func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())
}

func IncrementWSActiveConnections() { wsActiveConnections.Inc() }

func DecrementWSActiveConnections() { wsActiveConnections.Dec() }

func IncrementSlowConsumers() { wsSlowConsumers.Inc() }

func IncrementRoomsActive() { roomsActive.Inc() }

func DecrementRoomsActive() { roomsActive.Dec() }

// RecordCommand фиксирует результат команды: ok, noop или вид ошибки
func RecordCommand(command, result string, duration time.Duration) {
	commandsTotal.WithLabelValues(command, result).Inc()
	commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func IncrementAdsRequired(tier string) { adsRequiredTotal.WithLabelValues(tier).Inc() }

func IncrementBoostsActive() { boostsActive.Inc() }

func DecrementBoostsActive() { boostsActive.Dec() }
