package api

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pong-arena/internal/game"
)

// Metrics with bounded cardinality (labels come from fixed sets only)
var (
	stepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pong_step_duration_seconds",
		Help:    "Time spent in one simulation step",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
	})

	stepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_steps_total",
		Help: "Simulation steps run",
	})

	skippedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_skipped_frames_total",
		Help: "Host frames dropped by the frame gate",
	})

	contactsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pong_contacts_total",
		Help: "Resolved ball contacts",
	}, []string{"kind"}) // wall, goal, paddle

	goalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pong_goals_total",
		Help: "Goals scored, by scoring side",
	}, []string{"side"})

	commandsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_commands_rejected_total",
		Help: "Commands dropped because the queue was full",
	})

	chatMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Chat messages by outcome",
	}, []string{"result"}) // posted, rejected

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // rate_limit, origin, ws_total_limit, ws_ip_limit, auth

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	}, []string{"kind"}) // game, chat

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket broadcast messages",
	})
)

// StepMetrics feeds loop timings into Prometheus. It implements
// game.StepObserver.
type StepMetrics struct{}

// ObserveStep records one simulation step.
func (StepMetrics) ObserveStep(d time.Duration, res game.StepResult) {
	stepDuration.Observe(d.Seconds())
	stepsTotal.Inc()
	for _, c := range res.Contacts {
		contactsTotal.WithLabelValues(c.Kind.String()).Inc()
	}
	if res.Goal {
		goalsTotal.WithLabelValues(res.GoalSide.Opposite().String()).Inc()
	}
}

// ObserveSkip records a frame the gate dropped.
func (StepMetrics) ObserveSkip() {
	skippedFrames.Inc()
}

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // localhost only unless ALLOW_DEBUG_EXTERNAL=true
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultObservabilityConfig binds the debug server to localhost on port.
func DefaultObservabilityConfig(port int) ObservabilityConfig {
	if port <= 0 {
		port = 6060
	}
	return ObservabilityConfig{
		Enabled:       true,
		ListenAddr:    net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		BasicAuthUser: os.Getenv("DEBUG_USER"),
		BasicAuthPass: os.Getenv("DEBUG_PASS"),
	}
}

// DebugHandler serves pprof, /metrics and /health.
func DebugHandler(cfg ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the observability server in the background. The
// returned server is nil when disabled.
func StartDebugServer(cfg ObservabilityConfig) (*http.Server, error) {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil, nil
	}

	host, _, err := net.SplitHostPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("debug listen address: %w", err)
	}
	if host != "127.0.0.1" && host != "localhost" && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Println("⚠️ Debug server forced to localhost")
		_, port, _ := net.SplitHostPort(cfg.ListenAddr)
		cfg.ListenAddr = net.JoinHostPort("127.0.0.1", port)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           DebugHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return srv, nil
}

func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records latency per route pattern so cardinality stays
// bounded by the route table.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}

// RecordConnectionRejected increments the rejection counter.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// RecordCommandRejected counts a command the loop queue refused.
func RecordCommandRejected() {
	commandsRejected.Inc()
}

// RecordChat counts a chat post by outcome.
func RecordChat(posted bool) {
	if posted {
		chatMessages.WithLabelValues("posted").Inc()
		return
	}
	chatMessages.WithLabelValues("rejected").Inc()
}

// UpdateWSConnections sets the active connection gauge for kind.
func UpdateWSConnections(kind string, count int) {
	wsConnectionsActive.WithLabelValues(kind).Set(float64(count))
}

// IncrementWSMessages increments the broadcast counter.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
