package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"paytrack/config"
	contractmq "paytrack/contracts/mq"
	"paytrack/internal/changefeed"
	"paytrack/internal/db"
	"paytrack/internal/mqhandler"
	"paytrack/internal/orchestrator"
	"paytrack/internal/repository"
	"paytrack/internal/service"
	pkgdb "paytrack/pkg/db"
	"paytrack/pkg/logger"
	"paytrack/pkg/mq"
	"paytrack/pkg/otel"
	"paytrack/pkg/outbox"
	redisclient "paytrack/pkg/redis"
	"paytrack/pkg/util"
)

const (
	changeFeedQueue = "paytrack.changefeed.q"
	notifyQueue     = "paytrack.notify.q"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	if cfg.Storage.Driver != "postgres" {
		log.Fatal("Worker requires the postgres storage driver", zap.String("driver", cfg.Storage.Driver))
	}
	log.Info("Starting paytrack worker...")

	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    "paytrack-worker",
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
		SampleRatio:    cfg.Otel.SampleRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	defer shutdownOtel()

	pool, err := pkgdb.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool, log); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	if err := declareDLQ(cfg.MQ.URL); err != nil {
		log.Fatal("Failed to declare dead letter queue", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Outbox dispatcher
	dispatcher := outbox.NewDispatcher(outbox.NewRepository(pool), publisher, log).
		WithMaxRetries(int(cfg.MQ.MaxRetries)).
		WithInterval(cfg.Worker.OutboxInterval).
		WithBatchSize(cfg.Worker.OutboxBatchSize)
	go dispatcher.Start(ctx)

	// Overdue sweep
	payments := repository.NewPaymentRepository(pool, log)
	sweep := orchestrator.NewOverdueSweep(payments, cfg.Worker.SweepInterval, log)
	go sweep.Start(ctx)

	// Consumers
	deduper := util.NewDeduper(rdb, cfg.Worker.DedupTTL, log)
	retries := util.NewRetryCounter(rdb, cfg.Worker.RetryTTL)
	feed := changefeed.NewRedisFeed(rdb, log)
	cache := service.NewRedisReportCache(rdb)

	changeFeed := mqhandler.NewChangeFeedHandler(feed, cache, log)
	changeConsumer, err := mq.NewConsumer(cfg.MQ.URL, changeFeedQueue,
		[]string{"project.*", "payment.*", "task.*", "client.*"}, log)
	if err != nil {
		log.Fatal("Failed to init change feed consumer", zap.Error(err))
	}
	defer changeConsumer.Close()
	changeConsumer.SetHandler(mqhandler.Deduplicated(changeFeedQueue, deduper, changeFeed.Handle))
	changeConsumer.SetFailurePolicy(mqhandler.RetryPolicy(changeFeedQueue, retries, cfg.MQ.MaxRetries, publisher, log))

	notify := mqhandler.NewNotifyHandler(log)
	notifyConsumer, err := mq.NewConsumer(cfg.MQ.URL, notifyQueue,
		[]string{contractmq.ProjectStatusChanged, contractmq.PaymentOverdue}, log)
	if err != nil {
		log.Fatal("Failed to init notify consumer", zap.Error(err))
	}
	defer notifyConsumer.Close()
	notifyConsumer.SetHandler(mqhandler.Deduplicated(notifyQueue, deduper, notify.Handle))
	notifyConsumer.SetFailurePolicy(mqhandler.RetryPolicy(notifyQueue, retries, cfg.MQ.MaxRetries, publisher, log))

	for _, c := range []*mq.Consumer{changeConsumer, notifyConsumer} {
		go func() {
			if err := c.StartConsuming(); err != nil {
				log.Error("Consumer stopped", zap.Error(err))
				cancel()
			}
		}()
	}

	// Health server
	srv := &http.Server{
		Addr:    cfg.Worker.HealthPort,
		Handler: healthRouter(pool, publisher, changeConsumer, notifyConsumer),
	}
	go func() {
		log.Info("Worker health server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("Shutting down paytrack worker gracefully...")
	changeConsumer.Stop()
	notifyConsumer.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health server shutdown error", zap.Error(err))
	}
	log.Info("paytrack worker shutdown complete")
}

func declareDLQ(url string) error {
	conn, err := mq.NewConnection(url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := mq.DeclareDLQExchange(ch); err != nil {
		return err
	}
	_, err = mq.DeclareDLQQueue(ch)
	return err
}

func healthRouter(pool *pgxpool.Pool, publisher *mq.Publisher, consumers ...*mq.Consumer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "db": err.Error()})
			return
		}
		if !publisher.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "mq": "publisher disconnected"})
			return
		}
		for _, consumer := range consumers {
			if !consumer.IsConnected() {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "mq": "consumer disconnected"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
