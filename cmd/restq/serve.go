package restq

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/apidoor/restq/pkg/events"
	mw "github.com/apidoor/restq/pkg/httputil/middleware"
	"github.com/apidoor/restq/pkg/metrics"
	"github.com/apidoor/restq/pkg/rest"
	"github.com/apidoor/restq/pkg/store/postgres"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Starts a REST API server that exposes PostgreSQL tables as filterable HTTP endpoints`,
	Run:   runServer,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("rest.pg.connString", "c", "", "PostgreSQL connection string")
	f.StringP("rest.listenAddr", "l", "", "REST server listen address")
	f.String("rest.baseURL", "", "Base URL for API endpoints")
	f.String("rest.query.separator", "", "Filter modifier separator in query keys")
	f.Int("rest.query.defaultLimit", 0, "Default record limit for unbounded queries")
	f.Bool("metrics.enabled", false, "Expose Prometheus metrics")
	f.String("metrics.addr", "", "Prometheus metrics listen address")

	viper.BindPFlags(f)
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) {
	if cfg == nil {
		log.Fatal("Configuration not loaded")
	}

	connString := cfg.REST.PG.ConnString
	if connString == "" {
		connString = os.Getenv("RESTQ_REST_PG_CONN_STRING")
		if connString == "" {
			log.Fatal("PostgreSQL connection string required")
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, connString, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// flag overrides
	if listenAddr := viper.GetString("rest.listenAddr"); listenAddr != "" {
		cfg.REST.ListenAddr = listenAddr
	}

	handler := rest.NewHandler(store,
		rest.WithConfig(rest.Config{
			Separator:     cfg.REST.Query.Separator,
			DefaultLimit:  cfg.REST.Query.DefaultLimit,
			IgnoredParams: cfg.REST.Query.IgnoredParams,
		}),
		rest.WithLogger(logger),
	)

	serverOpts := []rest.ServerOption{
		rest.WithBaseURL(cfg.REST.BaseURL),
		rest.WithServerLogger(logger),
	}

	var publisher *events.Publisher
	if len(cfg.NATS.Servers) > 0 {
		publisher, err = events.Connect(cfg.NATS)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		serverOpts = append(serverOpts, rest.WithPublisher(publisher))
	}

	server := rest.NewServer(handler, serverOpts...)

	server.AddMiddleware(
		mw.RequestID,
		mw.CORSWithOptions(nil),
	)
	if logLevel != "none" {
		server.AddMiddleware(mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}))
	}

	var wg sync.WaitGroup
	metricsCtx, cancelMetrics := context.WithCancel(ctx)
	defer cancelMetrics()
	if cfg.Metrics.Enabled {
		go metrics.StartPrometheusServer(metricsCtx, &wg, &metrics.PromServerOpts{Addr: cfg.Metrics.Addr})
	}

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(cfg.REST.ListenAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	cancelMetrics()
	wg.Wait()

	log.Println("Server gracefully stopped")
}
