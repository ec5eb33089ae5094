package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/annotator/internal/config"
	apihttp "github.com/pribylovaa/annotator/internal/http"
	"github.com/pribylovaa/annotator/internal/metrics"
	logctx "github.com/pribylovaa/annotator/internal/pkg/log"
	"github.com/pribylovaa/annotator/internal/ratelimit"
	"github.com/pribylovaa/annotator/internal/service"
	"github.com/pribylovaa/annotator/internal/storage"
	"github.com/pribylovaa/annotator/internal/storage/memory"
	"github.com/pribylovaa/annotator/internal/storage/mongo"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := logctx.New(cfg.Env, os.Stdout)
	slog.SetDefault(log)
	log.Info("starting annotator-api", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	st, err := openStorage(rootCtx, cfg)
	if err != nil {
		log.Error("storage_init_failed", slog.String("driver", cfg.DB.Driver), slog.String("err", err.Error()))
		os.Exit(1)
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := st.Close(closeCtx); cerr != nil {
			log.Warn("storage_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	log.Info("storage_initialized", slog.String("driver", cfg.DB.Driver))

	limiter, rdb, err := newLimiter(rootCtx, cfg)
	if err != nil {
		log.Error("rate_limiter_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	if rdb != nil {
		defer func() {
			if cerr := rdb.Close(); cerr != nil {
				log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	svc, err := service.New(st, cfg.Auth)
	if err != nil {
		log.Error("service_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	bootCtx := logctx.Into(rootCtx, log)
	if err := svc.EnsureAdmin(bootCtx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName); err != nil {
		log.Error("admin_bootstrap_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	apiHandler := apihttp.NewRouter(svc, apihttp.Options{
		Config:  cfg,
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
		Limiter: limiter,
		Metrics: m,
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr), slog.String("base_path", cfg.HTTP.BasePath))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("annotator_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// openStorage выбирает хранилище по cfg.DB.Driver.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.DB.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverMongo:
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		m, err := mongo.New(connCtx, cfg.DB)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}

// newLimiter — Redis-лимитер при заданном REDIS_URL, иначе локальный в памяти процесса.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, *redis.Client, error) {
	rl := cfg.RateLimit

	if cfg.Redis.URL == "" {
		return ratelimit.NewLocal(rl.LoginRequests, rl.LoginWindow), nil, nil
	}

	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := ratelimit.Connect(connCtx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}

	return ratelimit.NewRedis(rdb, rl.LoginRequests, rl.LoginWindow, ""), rdb, nil
}
