package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"paytrack/internal/handler"
	"paytrack/pkg/otel"
	"paytrack/pkg/rbac"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Auth     *handler.AuthHandler
	Projects *handler.ProjectHandler
	Payments *handler.PaymentHandler
	Tasks    *handler.TaskHandler
	Clients  *handler.ClientHandler
	Reports  *handler.ReportHandler
	Admin    *handler.AdminHandler
}

type Options struct {
	JWTSecret      string
	RequestTimeout time.Duration
	// DB may be nil when running on the memory driver.
	DB Pinger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, opts Options, logger *zap.Logger) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), LoggingMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		if opts.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := opts.DB.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	api.Use(TimeoutMiddleware(opts.RequestTimeout))

	// Public
	api.POST("/register", h.Auth.Register)
	api.POST("/login", h.Auth.Login)

	// Protected
	auth := api.Group("/")
	auth.Use(AuthMiddleware(opts.JWTSecret))
	{
		auth.GET("/clients", RequirePermission(rbac.PermissionReadClient), h.Clients.List)
		auth.POST("/clients", RequirePermission(rbac.PermissionWriteClient), h.Clients.Create)
		auth.GET("/clients/:id", RequirePermission(rbac.PermissionReadClient), h.Clients.Get)
		auth.PUT("/clients/:id", RequirePermission(rbac.PermissionWriteClient), h.Clients.Update)
		auth.DELETE("/clients/:id", RequirePermission(rbac.PermissionDeleteClient), h.Clients.Delete)

		auth.GET("/projects", RequirePermission(rbac.PermissionReadProject), h.Projects.List)
		auth.POST("/projects", RequirePermission(rbac.PermissionWriteProject), h.Projects.Create)
		auth.GET("/projects/:id", RequirePermission(rbac.PermissionReadProject), h.Projects.Get)
		auth.PUT("/projects/:id", RequirePermission(rbac.PermissionWriteProject), h.Projects.Update)
		auth.DELETE("/projects/:id", RequirePermission(rbac.PermissionDeleteProject), h.Projects.Delete)
		auth.PATCH("/projects/:id/status", RequirePermission(rbac.PermissionMoveProject), h.Projects.ChangeStatus)
		auth.GET("/board", RequirePermission(rbac.PermissionReadProject), h.Projects.Board)

		auth.GET("/projects/:id/payments", RequirePermission(rbac.PermissionReadPayment), h.Payments.ListByProject)
		auth.POST("/projects/:id/payments", RequirePermission(rbac.PermissionWritePayment), h.Payments.Create)
		auth.POST("/payments/:id/pay", RequirePermission(rbac.PermissionWritePayment), h.Payments.MarkPaid)
		auth.DELETE("/payments/:id", RequirePermission(rbac.PermissionDeletePayment), h.Payments.Delete)

		auth.GET("/projects/:id/tasks", RequirePermission(rbac.PermissionReadTask), h.Tasks.ListByProject)
		auth.POST("/projects/:id/tasks", RequirePermission(rbac.PermissionWriteTask), h.Tasks.Create)
		auth.PUT("/tasks/:id", RequirePermission(rbac.PermissionWriteTask), h.Tasks.Update)
		auth.POST("/tasks/:id/complete", RequirePermission(rbac.PermissionWriteTask), h.Tasks.Complete)
		auth.DELETE("/tasks/:id", RequirePermission(rbac.PermissionDeleteTask), h.Tasks.Delete)

		auth.GET("/reports/summary", RequirePermission(rbac.PermissionReadReports), h.Reports.Summary)
		auth.GET("/reports/revenue", RequirePermission(rbac.PermissionReadReports), h.Reports.Revenue)
		auth.GET("/reports/payouts", RequirePermission(rbac.PermissionReadReports), h.Reports.Payouts)

		if h.Admin != nil {
			auth.POST("/admin/outbox/replay", RequirePermission(rbac.PermissionReplayOutbox), h.Admin.ReplayOutboxEvent)
			auth.POST("/admin/outbox/replay-failed", RequirePermission(rbac.PermissionReplayOutbox), h.Admin.ReplayFailedEvents)
		}
	}

	return &Router{Engine: r}
}
