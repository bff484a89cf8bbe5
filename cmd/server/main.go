// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/argusvision/inferd/internal/backend"
	"github.com/argusvision/inferd/internal/config"
	"github.com/argusvision/inferd/internal/detect"
	"github.com/argusvision/inferd/internal/engine"
	"github.com/argusvision/inferd/internal/handler"
	"github.com/argusvision/inferd/internal/metrics"
	"github.com/argusvision/inferd/internal/middleware"
	"github.com/argusvision/inferd/internal/models"
	"github.com/argusvision/inferd/internal/observer"
	"github.com/argusvision/inferd/internal/pipeline"
)

const serviceName = "inferd"

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "HTTP server port (default: 8080)")
	metricsPort := flag.Int("metrics", 0, "Prometheus metrics port (default: 9100)")
	faceModel := flag.String("face-model", "", "Path to the face detection ONNX model")
	plateModel := flag.String("plate-model", "", "Path to the license plate recognition ONNX model")
	vehicleModel := flag.String("vehicle-model", "", "Path to the vehicle attributes ONNX model")
	redisAddr := flag.String("redis", "", "Redis address for result publishing (default: disabled)")
	configFile := flag.String("config", "", "Path to config file (optional)")
	useMock := flag.Bool("mock", false, "Use mock execution backends (for testing)")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override with flags if provided
	if *port > 0 {
		cfg.Port = *port
	}
	if *metricsPort > 0 {
		cfg.MetricsPort = *metricsPort
	}
	if *faceModel != "" {
		cfg.FaceModel = *faceModel
	}
	if *plateModel != "" {
		cfg.PlateModel = *plateModel
	}
	if *vehicleModel != "" {
		cfg.VehicleModel = *vehicleModel
	}
	if *redisAddr != "" {
		cfg.Redis = *redisAddr
	}
	if *useMock {
		cfg.UseMockBackend = true
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting %s...", serviceName)
	log.Printf("Configuration: port=%d, metrics=%d, face=%s, plate=%s, vehicle=%s, redis=%s, mock=%v",
		cfg.Port, cfg.MetricsPort, cfg.FaceModel, cfg.PlateModel, cfg.VehicleModel,
		cfg.Redis, cfg.UseMockBackend)

	// Initialize OpenTelemetry tracer
	var tracerShutdown func(context.Context) error
	if cfg.OTELEnabled {
		tracerShutdown, err = initTracer(cfg.OTELEndpoint)
		if err != nil {
			log.Printf("Warning: Failed to initialize tracer: %v", err)
		} else {
			log.Printf("OpenTelemetry tracing enabled (endpoint: %s)", cfg.OTELEndpoint)
		}
	}

	// Shared-backend registry: branches pointed at the same model file
	// share one backend and release it on shutdown.
	registry := backend.NewRegistry()
	defer registry.CloseAll()

	// Primary detection branch; the pipeline cannot run without it.
	faceDesc, err := models.NewFaceDetection(cfg.FaceModel, cfg.DetectionBatch)
	if err != nil {
		log.Fatalf("Failed to load face detection model: %v", err)
	}
	primary := engine.New("faces", faceDesc, detect.NewFace(faceDesc, float32(cfg.Confidence)))
	if err := bind(registry, primary, cfg.UseMockBackend); err != nil {
		log.Fatalf("Failed to open face detection backend: %v", err)
	}
	log.Printf("Face detection model loaded (batch=%d)", cfg.DetectionBatch)

	// Secondary recognition branches; a branch whose model fails to load
	// is skipped, the rest of the pipeline still runs.
	var secondary []*engine.Core
	if cfg.PlateModel != "" {
		desc, err := models.NewLicensePlate(cfg.PlateModel, cfg.RecognitionBatch)
		if err != nil {
			log.Printf("Warning: skipping plate recognition: %v", err)
		} else {
			core := engine.New("plates", desc, detect.NewPlate(desc))
			if err := bind(registry, core, cfg.UseMockBackend); err != nil {
				log.Printf("Warning: skipping plate recognition: %v", err)
			} else {
				secondary = append(secondary, core)
				log.Printf("License plate model loaded (batch=%d)", cfg.RecognitionBatch)
			}
		}
	}
	if cfg.VehicleModel != "" {
		desc, err := models.NewVehicleAttributes(cfg.VehicleModel, cfg.RecognitionBatch)
		if err != nil {
			log.Printf("Warning: skipping vehicle attributes: %v", err)
		} else {
			core := engine.New("vehicles", desc, detect.NewVehicle(desc))
			if err := bind(registry, core, cfg.UseMockBackend); err != nil {
				log.Printf("Warning: skipping vehicle attributes: %v", err)
			} else {
				secondary = append(secondary, core)
				log.Printf("Vehicle attributes model loaded (batch=%d)", cfg.RecognitionBatch)
			}
		}
	}

	// Result observers: always log; publish to Redis when configured.
	observers := []engine.Observer{observer.NewLog()}
	if cfg.Redis != "" {
		log.Printf("Connecting to Redis at %s...", cfg.Redis)
		pub, err := observer.NewPublisher(cfg.Redis)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v (continuing without publishing)", err)
		} else {
			defer pub.Close()
			observers = append(observers, pub)
			log.Printf("Redis connected successfully")
		}
	}

	pipe := pipeline.New(primary, secondary, observers...)

	// Health server consulted by the HTTP probes
	healthServer := health.NewServer()

	// Start HTTP server for metrics and health checks
	metricsServer := startMetricsServer(cfg.MetricsPort, healthServer)

	// Application server
	h := handler.New(pipe)
	mux := http.NewServeMux()
	mux.Handle("/v1/detect", middleware.RequestID(middleware.Metrics(http.HandlerFunc(h.Detect))))

	appServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	// Set health status to serving
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	metrics.SetHealthy()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down gracefully...", sig)

		healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		metrics.SetUnhealthy()

		// Give time for load balancers to detect unhealthy status
		time.Sleep(5 * time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		appServer.Shutdown(ctx)
		metricsServer.Shutdown(ctx)

		if tracerShutdown != nil {
			tracerShutdown(ctx)
		}
	}()

	log.Printf("HTTP server listening on %s", appServer.Addr)
	log.Printf("%s is ready to accept frames", serviceName)

	if err := appServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to serve: %v", err)
	}

	log.Printf("Server shutdown complete")
}

func loadConfig(configFile string) (*config.Config, error) {
	if configFile != "" {
		return config.LoadWithConfigFile(configFile)
	}
	return config.Load()
}

// bind opens (or reuses) the execution backend for a core's model file
// and binds the core to it.
func bind(registry *backend.Registry, core *engine.Core, useMock bool) error {
	desc := core.Descriptor()
	open := func() (backend.Backend, error) { return backend.NewONNX(desc) }
	if useMock {
		open = func() (backend.Backend, error) { return backend.NewMock(desc), nil }
	}
	b, err := registry.Acquire(desc.Location(), open)
	if err != nil {
		return err
	}
	return core.Bind(b)
}

func startMetricsServer(port int, healthServer *health.Server) *http.Server {
	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp, err := healthServer.Check(r.Context(), &healthpb.HealthCheckRequest{})
		if err != nil || resp.Status != healthpb.HealthCheckResponse_SERVING {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Service Unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Readiness check (same as healthz for now)
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		resp, err := healthServer.Check(r.Context(), &healthpb.HealthCheckRequest{})
		if err != nil || resp.Status != healthpb.HealthCheckResponse_SERVING {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Not Ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s (metrics, health)", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	return server
}

func initTracer(endpoint string) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	var err error

	if endpoint != "" {
		// For now, use stdout exporter as OTLP requires more setup
		// In production, use: otlptrace.New(ctx, otlptracegrpc.NewClient(...))
		log.Printf("Note: Using stdout trace exporter (OTLP endpoint: %s)", endpoint)
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// Create resource with service information
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	// Set global tracer provider
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
