// Package app собирает сервис оформления заказа: хранилища, HTTP API, gRPC-пробы, метрики и воркеры.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/placeorder/internal/health"
	"github.com/vladislavdragonenkov/placeorder/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/placeorder/internal/metrics"
	"github.com/vladislavdragonenkov/placeorder/internal/passport"
	httpsvc "github.com/vladislavdragonenkov/placeorder/internal/service/http"
	"github.com/vladislavdragonenkov/placeorder/internal/service/placeorder"
	"github.com/vladislavdragonenkov/placeorder/internal/version"
)

const shutdownTimeout = 5 * time.Second

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	// Без Kafka сервис работает, задачи копятся до её появления.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	var taskPublisher *kafka.TaskPublisher
	if producer != nil {
		taskPublisher = kafka.NewTaskPublisher(producer, cfg.KafkaTaskTopic, cfg.KafkaDLQTopic)
	}

	service := newPlaceOrderService(cfg, deps, logger)

	handler := httpsvc.NewHandler(service,
		httpsvc.WithIdempotency(deps.idempotency, cfg.IdempotencyTTL),
		httpsvc.WithLogger(logger.WithField("component", "http-api")),
	)
	gin.SetMode(gin.ReleaseMode)
	apiSrv := &http.Server{
		Handler:           httpsvc.NewRouter(handler, cfg.AccessTokenSecret),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, healthServer := newGRPCServer(logger)

	healthHandler := newHealthHandler(deps.checkers)

	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		closeKafka(producer, logger)
		return fmt.Errorf("listen http: %w", err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = apiLis.Close()
		closeKafka(producer, logger)
		return fmt.Errorf("listen grpc: %w", err)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	workers := startWorkers(ctx, cfg, deps, taskPublisher, logger)

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("HTTP API слушает %s", apiLis.Addr())
		if err := apiSrv.Serve(apiLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		runErr = ctx.Err()
	case err := <-errCh:
		if !errors.Is(err, grpc.ErrServerStopped) {
			runErr = err
		}
	}

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownHTTP(apiSrv, logger)
	stopGRPC(grpcServer, logger)
	workers.stop(workersStopTimeout, logger)
	closeKafka(producer, logger)
	shutdownHTTP(metricsSrv, logger)

	return runErr
}

func newPlaceOrderService(cfg Config, deps *runtimeDependencies, logger *log.Entry) *placeorder.Service {
	var passports domain.PassportVerifier
	if cfg.WaiterSecret != "" {
		passports = passport.NewVerifier(cfg.WaiterSecret)
	} else {
		logger.Warn("WAITER_SECRET is not set, transactions with passport tokens will be rejected")
	}

	return placeorder.NewService(placeorder.Config{
		Project:                domain.Project{TypeOf: "Project", ID: cfg.ProjectID},
		PassportIssuers:        cfg.WaiterPassportIssuers,
		DefaultInformOrderURLs: cfg.DefaultInformOrderURLs,
	}, placeorder.Dependencies{
		Transactions: deps.transactions,
		Actions:      deps.actions,
		Sellers:      deps.sellers,
		PaymentNos:   deps.paymentNos,
		Tokens:       deps.tokens,
		Passports:    passports,
		Timeline:     deps.timeline,
	},
		placeorder.WithLogger(logger.WithField("component", "placeorder")),
		placeorder.WithMetrics(metrics.NewPlaceOrderMetrics()),
	)
}

// newGRPCServer поднимает gRPC со стандартными health и reflection сервисами.
func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	return grpcServer, healthServer
}

func stopGRPC(grpcServer *grpc.Server, logger *log.Entry) {
	stoppedCh := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		grpcServer.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// newHealthHandler собирает /healthz из проверок хранилищ.
func newHealthHandler(checkers map[string]healthcheck.Checker) *healthcheck.Handler {
	handler := healthcheck.NewHandler(version.GetVersion())
	for name, checker := range checkers {
		handler.RegisterChecker(name, checker)
	}
	return handler
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
