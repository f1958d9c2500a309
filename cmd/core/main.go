package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	grpc_adapter "github.com/JoeShih716/go-mem-wallet/internal/app/core/adapter/in/grpc"
	journal_adapter "github.com/JoeShih716/go-mem-wallet/internal/app/core/adapter/out/journal"
	memory_adapter "github.com/JoeShih716/go-mem-wallet/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-mem-wallet/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-mem-wallet/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-wallet/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-wallet/internal/config"
	"github.com/JoeShih716/go-mem-wallet/internal/logger"
	"github.com/JoeShih716/go-mem-wallet/internal/metrics"
	"github.com/JoeShih716/go-mem-wallet/pkg/mysql"
	"github.com/JoeShih716/go-mem-wallet/pkg/wal"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server exited")
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// 1. 稽核鏡像 (只寫不讀)
	sinks, closeSinks, err := openSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	audit := memory_adapter.NewAuditLog(
		memory_adapter.WithSinks(sinks...),
		memory_adapter.WithAuditBuffer(cfg.Audit.Buffer),
		memory_adapter.WithAuditLogger(log),
		memory_adapter.WithPublishObserver(func(sink usecase.AuditSink, err error) {
			m.ObserveSinkPublish(sinkName(sink), err)
		}),
		memory_adapter.WithDropObserver(func(domain.AuditEntry) {
			m.ObserveSinkDrop()
		}),
	)
	// 稽核輸送帶在 gRPC 停止之後才關閉，確保最後幾筆也送出
	auditCtx, stopAudit := context.WithCancel(context.Background())
	audit.Start(auditCtx)
	defer func() {
		stopAudit()
		<-audit.Done()
	}()

	// 2. 帳本與 UseCase
	ledger := memory_adapter.NewMutexLedger(memory_adapter.Config{
		IDMaxAttempts: cfg.Ledger.IDMaxAttempts,
		LockTimeout:   cfg.Ledger.LockTimeoutOrDefault(),
	}, audit, log)
	m.RegisterAccountGauge(ledger.AccountCount)
	m.RegisterAuditGauge(audit.Len)
	coreUseCase := usecase.NewCoreUseCase(ledger, usecase.WithLogger(log))

	// 3. gRPC Server
	grpcServer, healthServer := grpc_adapter.NewServer(coreUseCase, log, m)
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.GRPC.Addr).Msg("starting gRPC server")
		return grpcServer.Serve(lis)
	})

	// 4. /metrics
	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		if metricsServer == nil {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openSinks 依設定開啟稽核鏡像，回傳的 close 函式會在輸送帶停止後呼叫
func openSinks(ctx context.Context, cfg config.Config, log zerolog.Logger) ([]usecase.AuditSink, func(), error) {
	var (
		sinks   []usecase.AuditSink
		closers []func() error
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Error().Err(err).Msg("close audit sink")
			}
		}
	}

	if cfg.Audit.JournalPath != "" {
		var opts []wal.Option
		if cfg.Audit.JournalSync {
			opts = append(opts, wal.WithSyncEachWrite())
		}
		w, err := wal.Open(cfg.Audit.JournalPath, opts...)
		if err != nil {
			return nil, nil, err
		}
		sink := journal_adapter.NewSink(w)
		sinks = append(sinks, sink)
		closers = append(closers, sink.Close)
		log.Info().Str("path", cfg.Audit.JournalPath).Bool("sync", cfg.Audit.JournalSync).Msg("audit journal enabled")
	}

	if cfg.MySQL.Enabled {
		dbClient, err := mysql.NewClient(ctx, cfg.MySQL, log)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		repo := mysql_adapter.NewAuditRepository(dbClient)
		if err := repo.Migrate(ctx); err != nil {
			_ = dbClient.Close()
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, repo)
		closers = append(closers, dbClient.Close)
		log.Info().Str("host", cfg.MySQL.Host).Msg("audit mysql mirror enabled")
	}

	return sinks, closeAll, nil
}

func sinkName(sink usecase.AuditSink) string {
	if n, ok := sink.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", sink)
}
