package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boardly/internal/config"
	"boardly/internal/handlers"
	"boardly/internal/middleware"
	"boardly/internal/models"
	"boardly/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the boardly server",
	Long:  `Run the boardly API server using the loaded configuration.`,
	Run:   runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runServer is a config-only variant of cmd/server, without the flag/env
// DSN overrides. Useful for local development.
func runServer(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
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

	hub := services.NewBoardHub()
	go hub.Run()

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go services.NewDueDateMonitor(db, appLogger, automationService).Start(ctx, cfg.Automation.DueDateSweepEvery)

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimitMiddleware(cfg))

	healthHandler := handlers.NewHealthHandler(db, hub, appLogger)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	if cfg.Monitoring.Enabled {
		r.GET(cfg.Monitoring.MetricsPath, healthHandler.Metrics)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	handlers.RegisterWorkspaceRoutes(api, handlers.NewWorkspaceHandler(workspaceService, appLogger))
	handlers.RegisterBoardRoutes(api, handlers.NewBoardHandler(boardService, appLogger))
	handlers.RegisterCardRoutes(api, handlers.NewCardHandler(cardService, appLogger))
	handlers.RegisterTaskRoutes(api, handlers.NewTaskHandler(taskService, appLogger))
	handlers.RegisterTagRoutes(api, handlers.NewTagHandler(tagService, appLogger))
	handlers.RegisterCommentRoutes(api, handlers.NewCommentHandler(commentService, appLogger))
	handlers.RegisterAttachmentRoutes(api, handlers.NewAttachmentHandler(attachmentService, appLogger))
	handlers.RegisterDocumentRoutes(api, handlers.NewDocumentHandler(documentService, appLogger))
	handlers.RegisterCalendarRoutes(api, handlers.NewCalendarHandler(calendarService, appLogger))
	handlers.RegisterNotificationRoutes(api, handlers.NewNotificationHandler(notificationService, auditService, appLogger))
	handlers.RegisterAutomationRoutes(api, handlers.NewAutomationHandler(automationService, appLogger))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.GET("/ws", hub.HandleWebSocket)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: r,
	}
	go func() {
		appLogger.Infof("Starting server on %s", srv.Addr)
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
