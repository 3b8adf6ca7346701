package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/stepflow"
	"github.com/warriorguo/stepflow/api"
	"github.com/warriorguo/stepflow/config"
	"github.com/warriorguo/stepflow/metrics"
	"github.com/warriorguo/stepflow/runtime"
	"github.com/warriorguo/stepflow/steps"
	"github.com/warriorguo/stepflow/store/postgres"
	"github.com/warriorguo/stepflow/types"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %s", errors.ErrorStack(err))
	}
	cfg.ConfigureLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine, err := newEngine(cfg)
	if err != nil {
		log.Fatalf("failed to create engine: %s", errors.ErrorStack(err))
	}
	if err := steps.Register(engine, cfg.Neto); err != nil {
		log.Fatalf("failed to register %s: %s", steps.CustomerOrdersWorkflow, errors.ErrorStack(err))
	}

	mux := http.NewServeMux()
	api.NewHandler(api.Config{Engine: engine, DefaultWorkflow: steps.CustomerOrdersWorkflow}).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infof("listening on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("server error: %v", err)
			cancel()
		}
	}()
	go forgetLoop(ctx, engine, cfg.Engine.ForgetAfter)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
	if err := engine.Close(shutdownCtx); err != nil {
		log.Errorf("failed to close engine: %v", err)
	}
	log.Info("stopped")
}

func newEngine(cfg *config.Config) (*runtime.Engine, error) {
	opts := cfg.FlowOptions()
	opts = append(opts, types.WithObserver(metrics.NewObserver(prometheus.DefaultRegisterer)))

	switch cfg.Store.Driver {
	case config.StoreNone:
		opts = append(opts, types.EnableMemStore(), types.DisableTracePersistence())
	case config.StoreMem:
		opts = append(opts, types.EnableMemStore())
	case config.StorePostgres:
		pg := cfg.Store.Postgres
		if cfg.Store.DSN != "" {
			parsed, err := postgres.ParseDSN(cfg.Store.DSN)
			if err != nil {
				return nil, errors.Trace(err)
			}
			pg = types.PostgresConfig{
				Host:     parsed.Host,
				Port:     parsed.Port,
				User:     parsed.User,
				Password: parsed.Password,
				Database: parsed.Database,
				SSLMode:  parsed.SSLMode,
				Table:    parsed.Table,
			}
		}
		opts = append(opts, types.WithPostgresConfig(&pg))
	}
	return stepflow.NewFlowEngine(opts...)
}

func forgetLoop(ctx context.Context, engine *runtime.Engine, age time.Duration) {
	if age <= 0 {
		return
	}
	ticker := time.NewTicker(age / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := engine.Forget(age); n > 0 {
				log.Debugf("forgot %d finished executions", n)
			}
		}
	}
}
