package main

import (
	"fmt"
	"log"
	"os"

	"boardly/internal/config"
	"boardly/internal/models"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Starting database migration...")

	err = db.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.Board{},
		&models.BoardMember{},
		&models.List{},
		&models.Card{},
		&models.Tag{},
		&models.Task{},
		&models.Comment{},
		&models.Attachment{},
		&models.Document{},
		&models.CalendarEvent{},
		&models.Notification{},
		&models.AuditLog{},
		&models.Automation{},
		&models.AutomationExecution{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migration completed successfully!")

	log.Println("Creating additional indexes...")

	// Card lookups by board and list dominate read traffic.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_cards_board_list ON cards(board_id, list_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_cards_status_due ON cards(status, due_date)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_cards_assignee_status ON cards(assignee_id, status)")

	// Evaluator loads active rules per board on every event.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_automations_board_active ON automations(board_id, active)")

	// Execution log is always queried newest first.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_automation_executions_board_created ON automation_executions(board_id, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_automation_executions_rule_created ON automation_executions(automation_id, created_at)")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, read)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_logs_board_created ON audit_logs(board_id, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_calendar_events_user_start ON calendar_events(user_id, start_date)")

	log.Println("Additional indexes created successfully!")

	if len(os.Args) > 1 && os.Args[1] == "--seed" {
		log.Println("Seeding default data...")
		seedDefaultData(db)
		log.Println("Default data seeded successfully!")
	}

	log.Println("Migration process completed!")
}

func seedDefaultData(db *gorm.DB) {
	var adminUser models.User
	if err := db.Where("username = ?", "admin").First(&adminUser).Error; err != nil {
		adminUser = models.User{
			Username: "admin",
			Email:    "admin@boardly.local",
			Name:     "Administrator",
			Role:     "admin",
			Status:   "active",
		}
		db.Create(&adminUser)
		log.Println("Created default admin user")
	}

	var workspace models.Workspace
	if err := db.Where("name = ?", "Getting Started").First(&workspace).Error; err != nil {
		workspace = models.Workspace{
			Name:        "Getting Started",
			Description: "A sample workspace to explore boards, cards, and automations.",
			OwnerID:     adminUser.ID,
		}
		db.Create(&workspace)
		db.Create(&models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      adminUser.ID,
			Role:        "admin",
		})
		log.Println("Created sample workspace")
	}

	var board models.Board
	if err := db.Where("workspace_id = ? AND name = ?", workspace.ID, "First Board").First(&board).Error; err != nil {
		board = models.Board{
			WorkspaceID: workspace.ID,
			Name:        "First Board",
			Description: "Demo board with the usual three columns.",
			Color:       "#0079bf",
			CreatedByID: adminUser.ID,
		}
		db.Create(&board)
		db.Create(&models.BoardMember{BoardID: board.ID, UserID: adminUser.ID, Role: "admin"})

		for i, name := range []string{"To Do", "In Progress", "Done"} {
			db.Create(&models.List{BoardID: board.ID, Name: name, Position: i})
		}
		log.Println("Created sample board with lists")
	}
}
