package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"paytrack/config"
	"paytrack/internal/billing"
	"paytrack/internal/board"
	"paytrack/internal/changefeed"
	"paytrack/internal/db"
	"paytrack/internal/handler"
	"paytrack/internal/httpserver"
	"paytrack/internal/lifecycle"
	"paytrack/internal/repository"
	"paytrack/internal/service"
	pkgdb "paytrack/pkg/db"
	"paytrack/pkg/logger"
	"paytrack/pkg/mq"
	"paytrack/pkg/otel"
	"paytrack/pkg/outbox"
	redisclient "paytrack/pkg/redis"
)

type projectStore interface {
	service.ProjectStore
	lifecycle.ProjectStore
	board.ProjectLister
}

type paymentStore interface {
	service.PaymentStore
	lifecycle.PaymentCounter
	billing.PaymentWriter
}

type stores struct {
	projects projectStore
	payments paymentStore
	tasks    service.TaskStore
	clients  service.ClientStore
	users    service.UserStore
	feed     changefeed.Feed
	cache    service.ReportCache
	pool     *pgxpool.Pool
	admin    *handler.AdminHandler
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting paytrack api",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("batch_mode", cfg.Billing.BatchMode),
	)

	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    "paytrack-api",
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
		SampleRatio:    cfg.Otel.SampleRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	defer shutdownOtel()

	st, err := openStores(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Storage initialization failed", zap.Error(err))
	}
	defer st.close()

	strategy, err := billing.ParseStrategy(cfg.Billing.BatchMode, cfg.Billing.WriteTimeout, log)
	if err != nil {
		log.Fatal("Invalid billing configuration", zap.Error(err))
	}
	scheduler := billing.NewScheduler(st.payments, strategy, log)
	machine := lifecycle.NewMachine(st.projects, st.payments, scheduler,
		lifecycle.Options{GuardReactivation: cfg.Lifecycle.GuardReactivation}, log)

	kanban := board.New(st.projects, machine, log)
	if err := kanban.Reload(context.Background()); err != nil {
		log.Fatal("Failed to load board", zap.Error(err))
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := kanban.Watch(watchCtx, st.feed); err != nil {
			log.Error("Board change feed stopped", zap.Error(err))
		}
	}()

	projectService := service.NewProjectService(st.projects, kanban, log)
	paymentService := service.NewPaymentService(st.projects, st.payments, log)
	taskService := service.NewTaskService(st.projects, st.tasks)
	clientService := service.NewClientService(st.clients)
	reportService := service.NewReportService(st.projects, st.payments, st.cache, cfg.Reports.CacheTTL, log)
	go func() {
		if err := reportService.Watch(watchCtx, st.feed); err != nil {
			log.Error("Report cache change feed stopped", zap.Error(err))
		}
	}()
	authService := service.NewAuthService(st.users, cfg.JWT.Secret, cfg.JWT.TTL, cfg.Auth.AdminEmails, log)
	if err := authService.SeedAdmins(context.Background(), cfg.Auth.AdminPassword); err != nil {
		log.Fatal("Failed to seed admin accounts", zap.Error(err))
	}

	opts := httpserver.Options{
		JWTSecret:      cfg.JWT.Secret,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if st.pool != nil {
		opts.DB = st.pool
	}

	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:     handler.NewAuthHandler(authService, log),
		Projects: handler.NewProjectHandler(projectService, kanban, log),
		Payments: handler.NewPaymentHandler(paymentService, log),
		Tasks:    handler.NewTaskHandler(taskService, log),
		Clients:  handler.NewClientHandler(clientService, log),
		Reports:  handler.NewReportHandler(reportService, log),
		Admin:    st.admin,
	}, opts, log)

	srv := httpserver.NewServer(cfg.Server.Port, router, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down paytrack api gracefully...")
	stopWatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}
	log.Info("paytrack api shutdown complete")
}

// openStores builds the repositories, change feed and report cache for the
// configured storage driver.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Storage.Driver == "memory" {
		feed := changefeed.NewMemoryFeed()
		mem := repository.NewMemory(feed, log)
		log.Warn("Using in-memory storage, data is lost on restart")
		return &stores{
			projects: mem.Projects(),
			payments: mem.Payments(),
			tasks:    mem.Tasks(),
			clients:  mem.Clients(),
			users:    mem.Users(),
			feed:     feed,
			cache:    service.NewMemoryReportCache(),
		}, nil
	}

	st := &stores{}
	pool, err := pkgdb.NewConnection(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	st.pool = pool
	st.closers = append(st.closers, pool.Close)

	if err := db.Migrate(ctx, pool, log); err != nil {
		st.close()
		return nil, err
	}

	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		st.close()
		return nil, err
	}
	st.closers = append(st.closers, func() { _ = rdb.Close() })

	st.projects = repository.NewProjectRepository(pool, log)
	st.payments = repository.NewPaymentRepository(pool, log)
	st.tasks = repository.NewTaskRepository(pool, log)
	st.clients = repository.NewClientRepository(pool, log)
	st.users = repository.NewUserRepository(pool, log)
	st.feed = changefeed.NewRedisFeed(rdb, log)
	st.cache = service.NewRedisReportCache(rdb)
	st.admin = adminHandler(cfg, pool, st, log)
	return st, nil
}

// adminHandler wires outbox replay. Without a broker the admin routes are
// not registered.
func adminHandler(cfg *config.Config, pool *pgxpool.Pool, st *stores, log *zap.Logger) *handler.AdminHandler {
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Warn("RabbitMQ unavailable, outbox replay disabled", zap.Error(err))
		return nil
	}
	st.closers = append(st.closers, publisher.Close)

	replay := outbox.NewReplayService(outbox.NewRepository(pool), publisher, log)
	return handler.NewAdminHandler(replay, log)
}
