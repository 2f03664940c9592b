package cmd

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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/Billy-Davies-2/fightpick/internal/analytics"
	"github.com/Billy-Davies-2/fightpick/internal/clickhouse"
	"github.com/Billy-Davies-2/fightpick/internal/config"
	"github.com/Billy-Davies-2/fightpick/internal/dal"
	grpcserver "github.com/Billy-Davies-2/fightpick/internal/grpc"
	"github.com/Billy-Davies-2/fightpick/internal/handlers"
	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/metrics"
	"github.com/Billy-Davies-2/fightpick/internal/mocks"
	"github.com/Billy-Davies-2/fightpick/internal/pubsub"
	"github.com/Billy-Davies-2/fightpick/internal/session"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC servers",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("Starting fightpick", "environment", cfg.Environment, "http_addr", cfg.HTTPAddr, "grpc_addr", cfg.GRPCAddr)

	store, err := dal.Open(dal.Options{
		Driver:     cfg.DB.Driver,
		SQLiteFile: cfg.DB.SQLiteFile,
		URL:        cfg.DB.URL,
		SeedDemo:   cfg.DB.SeedDemo,
	})
	if err != nil {
		return err
	}
	defer store.Close()
	store = dal.WithSubmitDelay(store, cfg.SubmitDelay)

	bus, source, closeBus, err := openBus(cfg.Events)
	if err != nil {
		return err
	}
	defer closeBus()

	sink, err := openSink(cfg.ClickHouse)
	if err != nil {
		return err
	}
	defer sink.Close()

	m := metrics.Default()
	sessions := session.NewStore(cfg.SessionTTL,
		session.WithSecureCookies(cfg.IsProduction()),
		session.WithObserver(m.SetActiveSessions),
	)
	submitter := pubsub.Announce(store, bus)

	h := handlers.New(handlers.Deps{
		Store:     store,
		Submitter: submitter,
		Bus:       bus,
		Sessions:  sessions,
		Metrics:   m,
		Sink:      sink,
		Locale:    cfg.Locale,
	})

	g, gctx := errgroup.WithContext(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end on shutdown so event streams let go
		BaseContext: func(net.Listener) context.Context { return gctx },
	}
	g.Go(func() error {
		logger.Info("HTTP server starting", "address", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server")
		return httpSrv.Shutdown(shutdownCtx)
	})

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen for gRPC on %s: %w", cfg.GRPCAddr, err)
		}
		grpcSrv := grpc.NewServer()
		grpcserver.RegisterPredictionServiceServer(grpcSrv, grpcserver.NewServer(store, submitter, bus, m))

		g.Go(func() error {
			logger.Info("gRPC server starting", "address", cfg.GRPCAddr)
			return grpcSrv.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Shutting down gRPC server")
			grpcSrv.GracefulStop()
			return nil
		})
	}

	g.Go(func() error { return sessions.RunPruner(gctx, pruneInterval) })
	g.Go(func() error { return analytics.Run(gctx, source, sink) })

	err = g.Wait()
	logger.Info("Server stopped")
	return err
}

// openBus returns the bus handlers publish to, the source analytics reads
// from and a close function. With NATS the local bus is bridged upstream and
// analytics reads the JetStream side so it can use a durable consumer.
func openBus(cfg config.EventsConfig) (*pubsub.PubSub, analytics.Source, func(), error) {
	switch cfg.Backend {
	case "embedded":
		embedded, err := pubsub.NewEmbeddedNATSPubSub(pubsub.EmbeddedNATSOptions{
			Port:       -1,
			Subject:    cfg.Subject,
			StreamName: cfg.Stream,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		logger.Info("Embedded NATS server ready", "url", embedded.ServerURL())
		local := pubsub.NewWithUpstream(embedded)
		return local, embedded, func() { local.Close(); embedded.Close() }, nil

	case "nats":
		remote, err := pubsub.NewNATSPubSub(pubsub.NATSOptions{
			URL:     cfg.URL,
			Subject: cfg.Subject,
			Stream:  cfg.Stream,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to NATS: %w", err)
		}
		logger.Info("Connected to NATS", "url", cfg.URL)
		local := pubsub.NewWithUpstream(remote)
		return local, remote, func() { local.Close(); remote.Close() }, nil

	default:
		logger.Info("Using in-process event bus")
		local := pubsub.New()
		return local, local, local.Close, nil
	}
}

// openSink connects to ClickHouse, or keeps analytics in memory when it is disabled
func openSink(cfg config.ClickHouseConfig) (analytics.Sink, error) {
	if !cfg.Enabled {
		logger.Info("Using in-memory analytics sink (clickhouse disabled)")
		return mocks.NewAnalyticsSink(), nil
	}

	client, err := clickhouse.NewClient(clickhouse.Options{
		Addr:     cfg.Addr,
		Database: cfg.Database,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to ClickHouse at %s: %w", cfg.Addr, err)
	}
	logger.Info("Connected to ClickHouse", "address", cfg.Addr, "database", cfg.Database)
	return client, nil
}
