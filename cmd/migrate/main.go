package main

import (
	"log"

	"ai-mail-workspace-be/internal/config"
	"ai-mail-workspace-be/internal/model"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DATABASE_URL is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, database.Options{
		LogLevel:      cfg.Database.LogLevel,
		SlowThreshold: cfg.Database.SlowThreshold,
		Logger:        logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production"),
	})
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")
	// gen_random_uuid() defaults need pgcrypto on older Postgres.
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.User{},
		&model.OauthAccount{},
		&model.AIConversation{},
		&model.AIConversationMessage{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Creating indexes...")
	indexSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_ai_conversations_user_mailbox ON ai_conversations (user_id, mailbox, last_message_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_ai_conversation_messages_conv_created ON ai_conversation_messages (conversation_id, created_at DESC);`,
	}
	for _, sql := range indexSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute index SQL: %v", err)
		}
	}

	log.Println("Success: Database migration completed.")
}
