package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"boardly/internal/config"
	"boardly/internal/handlers"
	"boardly/internal/middleware"
	"boardly/internal/models"
	"boardly/internal/observability"
	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"
)

func main() {
	// Config file (./config.yml by default), overridable via env.
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	// Database and listen address can be overridden with flags/env, matching
	// the migrate command's interface.
	var (
		flagDSN   string
		dbHost    string
		dbPortStr string
		dbUser    string
		dbPass    string
		dbName    string
		dbSSLMode string
		dbTZ      string
		srvHost   string
		srvPort   int
	)
	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(os.Stdout)
	flagSet.StringVar(&flagDSN, "dsn", os.Getenv("DB_DSN"), "Postgres DSN, if set overrides other DB flags")
	flagSet.StringVar(&dbHost, "db-host", getenvDefault("DB_HOST", cfg.Database.Host), "database host")
	flagSet.StringVar(&dbPortStr, "db-port", getenvDefault("DB_PORT", fmt.Sprintf("%d", cfg.Database.Port)), "database port")
	flagSet.StringVar(&dbUser, "db-user", getenvDefault("DB_USER", cfg.Database.User), "database user")
	flagSet.StringVar(&dbPass, "db-pass", getenvDefault("DB_PASSWORD", cfg.Database.Password), "database password")
	flagSet.StringVar(&dbName, "db-name", getenvDefault("DB_NAME", cfg.Database.Name), "database name")
	flagSet.StringVar(&dbSSLMode, "db-sslmode", getenvDefault("DB_SSLMODE", "disable"), "sslmode (disable, require, verify-ca, verify-full)")
	flagSet.StringVar(&dbTZ, "db-timezone", getenvDefault("DB_TIMEZONE", "UTC"), "database timezone")
	flagSet.StringVar(&srvHost, "host", getenvDefault("BOARDLY_HOST", cfg.Server.Host), "server host (listen)")
	flagSet.IntVar(&srvPort, "port", func() int {
		if p := os.Getenv("BOARDLY_PORT"); p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				return n
			}
		}
		return cfg.Server.Port
	}(), "server port (listen)")
	_ = flagSet.Parse(os.Args[1:])

	dsn := flagDSN
	if dsn == "" {
		host := firstNonEmpty(dbHost, cfg.Database.Host)
		user := firstNonEmpty(dbUser, cfg.Database.User)
		pass := firstNonEmpty(dbPass, cfg.Database.Password)
		name := firstNonEmpty(dbName, cfg.Database.Name)
		port := dbPortStr
		if port == "" && cfg.Database.Port != 0 {
			port = fmt.Sprintf("%d", cfg.Database.Port)
		}
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", host, user, pass, name, port, dbSSLMode, dbTZ)
	}

	if err := config.InitLogger(cfg); err != nil {
		logrus.Warnf("init logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	// Optional OpenTelemetry export.
	shutdownOTel, err := observability.SetupTracing(context.Background(), cfg)
	if err != nil {
		appLogger.Warnf("init tracing: %v", err)
	} else {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Info)})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.Monitoring.Tracing.Enabled {
		_ = db.Use(gormtracing.NewPlugin())
	}

	if err := db.AutoMigrate(
		&models.User{}, &models.Workspace{}, &models.WorkspaceMember{},
		&models.Board{}, &models.BoardMember{}, &models.List{},
		&models.Card{}, &models.Tag{}, &models.Task{},
		&models.Comment{}, &models.Attachment{}, &models.Document{},
		&models.CalendarEvent{}, &models.Notification{}, &models.AuditLog{},
		&models.Automation{}, &models.AutomationExecution{},
	); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// Realtime hub.
	hub := services.NewBoardHub()
	go hub.Run()

	// Business services.
	workspaceService := services.NewWorkspaceService(db)
	boardService := services.NewBoardService(db, appLogger)
	cardService := services.NewCardService(db, appLogger)
	taskService := services.NewTaskService(db)
	tagService := services.NewTagService(db)
	commentService := services.NewCommentService(db, appLogger)
	attachmentService := services.NewAttachmentService(db, cfg.Upload)
	documentService := services.NewDocumentService(db)
	calendarService := services.NewCalendarService(db)
	auditService := services.NewAuditService(db)
	notificationService := services.NewNotificationService(db, appLogger)
	emailService := services.NewEmailService(cfg.Email, appLogger)

	// Automation engine: rule evaluation runs inline on domain events, its
	// effects go through the collaborator interfaces below.
	automationService := services.NewAutomationService(db, appLogger)
	automationService.SetActionTimeout(cfg.Automation.ActionTimeout)
	automationService.SetCollaborators(services.Collaborators{
		Cards:    cardService,
		Notifier: notificationService,
		Email:    emailService,
		Tasks:    taskService,
		Calendar: calendarService,
		Audit:    auditService,
	})

	cardService.SetAutomationService(automationService)
	cardService.SetBoardHub(hub)
	taskService.SetAutomationService(automationService)
	taskService.SetBoardHub(hub)
	commentService.SetAutomationService(automationService)
	commentService.SetBoardHub(hub)
	attachmentService.SetAutomationService(automationService)
	attachmentService.SetBoardHub(hub)
	notificationService.SetBoardHub(hub)

	// Due-date monitor emits DUE_DATE_APPROACHING events on a fixed interval.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dueDateMonitor := services.NewDueDateMonitor(db, appLogger, automationService)
	go dueDateMonitor.Start(ctx, cfg.Automation.DueDateSweepEvery)

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddlewareWithConfig(cfg))
	r.Use(middleware.RateLimitMiddleware(cfg))
	if cfg.Monitoring.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Monitoring.Tracing.ServiceName))
	}

	// Health and metrics.
	healthHandler := handlers.NewHealthHandler(db, hub, appLogger)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	if cfg.Monitoring.Enabled {
		r.GET(cfg.Monitoring.MetricsPath, healthHandler.Metrics)
	}

	// Authenticated API, RBAC-scoped per resource.
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))

	workspacesAPI := api.Group("/")
	workspacesAPI.Use(middleware.RequireResourcePermission("workspaces"))
	handlers.RegisterWorkspaceRoutes(workspacesAPI, handlers.NewWorkspaceHandler(workspaceService, appLogger))

	boardsAPI := api.Group("/")
	boardsAPI.Use(middleware.RequireResourcePermission("boards"))
	handlers.RegisterBoardRoutes(boardsAPI, handlers.NewBoardHandler(boardService, appLogger))

	cardsAPI := api.Group("/")
	cardsAPI.Use(middleware.RequireResourcePermission("cards"))
	handlers.RegisterCardRoutes(cardsAPI, handlers.NewCardHandler(cardService, appLogger))

	tasksAPI := api.Group("/")
	tasksAPI.Use(middleware.RequireResourcePermission("tasks"))
	handlers.RegisterTaskRoutes(tasksAPI, handlers.NewTaskHandler(taskService, appLogger))

	tagsAPI := api.Group("/")
	tagsAPI.Use(middleware.RequireResourcePermission("tags"))
	handlers.RegisterTagRoutes(tagsAPI, handlers.NewTagHandler(tagService, appLogger))

	commentsAPI := api.Group("/")
	commentsAPI.Use(middleware.RequireResourcePermission("comments"))
	handlers.RegisterCommentRoutes(commentsAPI, handlers.NewCommentHandler(commentService, appLogger))

	attachmentsAPI := api.Group("/")
	attachmentsAPI.Use(middleware.RequireResourcePermission("attachments"))
	handlers.RegisterAttachmentRoutes(attachmentsAPI, handlers.NewAttachmentHandler(attachmentService, appLogger))

	documentsAPI := api.Group("/")
	documentsAPI.Use(middleware.RequireResourcePermission("documents"))
	handlers.RegisterDocumentRoutes(documentsAPI, handlers.NewDocumentHandler(documentService, appLogger))

	calendarAPI := api.Group("/")
	calendarAPI.Use(middleware.RequireResourcePermission("calendar"))
	handlers.RegisterCalendarRoutes(calendarAPI, handlers.NewCalendarHandler(calendarService, appLogger))

	notificationsAPI := api.Group("/")
	notificationsAPI.Use(middleware.RequireResourcePermission("notifications"))
	handlers.RegisterNotificationRoutes(notificationsAPI, handlers.NewNotificationHandler(notificationService, auditService, appLogger))

	automationsAPI := api.Group("/")
	automationsAPI.Use(middleware.RequireResourcePermission("automations"))
	handlers.RegisterAutomationRoutes(automationsAPI, handlers.NewAutomationHandler(automationService, appLogger))

	// Realtime endpoint.
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.GET("/ws", hub.HandleWebSocket)

	host := firstNonEmpty(srvHost, cfg.Server.Host)
	port := srvPort
	if port == 0 {
		port = cfg.Server.Port
	}
	listenAddr := fmt.Sprintf("%s:%d", host, port)

	srv := &http.Server{Addr: listenAddr, Handler: r}
	go func() {
		appLogger.Infof("Starting server on %s", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}
	appLogger.Info("Server exited")
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func corsMiddlewareWithConfig(cfg *config.Config) gin.HandlerFunc {
	allowedOrigins := "*"
	allowedMethods := "GET, POST, PUT, DELETE, OPTIONS"
	allowedHeaders := "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization"
	if cfg != nil && cfg.Security.CORS.Enabled {
		if len(cfg.Security.CORS.AllowedOrigins) > 0 {
			allowedOrigins = strings.Join(cfg.Security.CORS.AllowedOrigins, ", ")
		}
		if len(cfg.Security.CORS.AllowedMethods) > 0 {
			allowedMethods = strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
		}
		if len(cfg.Security.CORS.AllowedHeaders) > 0 {
			allowedHeaders = strings.Join(cfg.Security.CORS.AllowedHeaders, ", ")
		}
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigins)
		c.Header("Access-Control-Allow-Methods", allowedMethods)
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
