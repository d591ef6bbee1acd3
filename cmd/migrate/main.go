package main

import (
	"log"

	"companion-be/internal/config"
	"companion-be/internal/model"
	"companion-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.IsProduction())
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions
	log.Println("Step 1: Setting up Extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	// 4. AutoMigrate All Models
	models := []interface{}{
		&model.User{},
		&model.UserQuestionnaire{},
		&model.UserPreference{},
		&model.Character{},
		&model.ChatSession{},
		&model.ChatParticipant{},
		&model.ChatMessage{},
		&model.NotificationType{},
		&model.Notification{},
	}
	log.Printf("Step 2: Running AutoMigrate for %d Tables...", len(models))

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: cascade constraints GORM cannot express on append-only tables
	log.Println("Step 3: Creating Constraints...")

	postMigrationSQL := []string{
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_chat_messages_session') THEN
		   ALTER TABLE chat_messages ADD CONSTRAINT fk_chat_messages_session
		   FOREIGN KEY (chat_session_id) REFERENCES chat_sessions(id) ON DELETE CASCADE;
		 END IF; END $$;`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_user_preferences_user') THEN
		   ALTER TABLE user_preferences ADD CONSTRAINT fk_user_preferences_user
		   FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE;
		 END IF; END $$;`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_user_questionnaires_user') THEN
		   ALTER TABLE user_questionnaires ADD CONSTRAINT fk_user_questionnaires_user
		   FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE;
		 END IF; END $$;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
