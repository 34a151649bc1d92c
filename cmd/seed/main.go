package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"shopmind/internal/models"
	"shopmind/internal/repository"
	"shopmind/internal/service"
	"shopmind/pkg/config"
	"shopmind/pkg/logger"
	"shopmind/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'curator',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		price DOUBLE PRECISION,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		brand TEXT NOT NULL DEFAULT '',
		sku TEXT NOT NULL DEFAULT '',
		stock_quantity INT NOT NULL DEFAULT 0,
		main_image TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS qa_entries (
		position BIGSERIAL PRIMARY KEY,
		question TEXT NOT NULL,
		question_key TEXT NOT NULL UNIQUE,
		answer TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		last_asked_at TIMESTAMPTZ NOT NULL,
		occurrences INT NOT NULL DEFAULT 1,
		metadata JSONB,
		last_learned_at TIMESTAMPTZ
	)`,
}

type seedProduct struct {
	Name          string   `json:"name"`
	Price         *float64 `json:"price"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	Brand         string   `json:"brand"`
	SKU           string   `json:"sku"`
	StockQuantity int      `json:"stock_quantity"`
	MainImage     string   `json:"main_image"`
}

type seedAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Bootstrapping schema")
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			appLogger.Fatal("Schema bootstrap failed", zap.Error(err))
		}
	}

	productRepo := repository.NewProductRepository(db, appLogger)
	qaRepo := repository.NewQARepository(db, appLogger)

	seedDir := filepath.Join("cmd", "seed")

	if err := seedProducts(ctx, filepath.Join(seedDir, "products.json"), productRepo, appLogger); err != nil {
		appLogger.Fatal("Failed to seed products", zap.Error(err))
	}
	if err := seedAnswers(ctx, filepath.Join(seedDir, "answers.json"), qaRepo, appLogger); err != nil {
		appLogger.Fatal("Failed to seed answers", zap.Error(err))
	}

	appLogger.Info("Database seeding completed successfully!")
}

func seedProducts(ctx context.Context, path string, repo *repository.ProductRepository, appLogger *zap.Logger) error {
	var items []seedProduct
	if err := readJSON(path, &items); err != nil {
		return err
	}

	existing, err := repo.ListActive(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.SKU] = true
	}

	var created int
	for _, item := range items {
		if item.SKU != "" && seen[item.SKU] {
			continue
		}
		p := &models.Product{
			ID:            uuid.New(),
			Name:          item.Name,
			Price:         item.Price,
			Description:   item.Description,
			Category:      item.Category,
			Tags:          item.Tags,
			Brand:         item.Brand,
			SKU:           item.SKU,
			StockQuantity: item.StockQuantity,
			MainImage:     item.MainImage,
			IsActive:      true,
		}
		if err := repo.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create product %q: %w", item.Name, err)
		}
		created++
	}

	appLogger.Info("Products seeded", zap.Int("created", created), zap.Int("skipped", len(items)-created))
	return nil
}

func seedAnswers(ctx context.Context, path string, repo *repository.QARepository, appLogger *zap.Logger) error {
	var items []seedAnswer
	if err := readJSON(path, &items); err != nil {
		return err
	}

	now := time.Now()
	for i := range items {
		item := items[i]
		entry := &models.QAEntry{
			Question:    item.Question,
			Key:         service.QuestionKey(item.Question),
			Answer:      &item.Answer,
			CreatedAt:   now,
			LastAskedAt: now,
			Occurrences: 1,
			Metadata:    map[string]any{"source": "seed"},
		}
		entry.LastLearnedAt = &now
		if err := repo.Upsert(ctx, entry); err != nil {
			return fmt.Errorf("failed to seed answer for %q: %w", item.Question, err)
		}
	}

	appLogger.Info("Curated answers seeded", zap.Int("count", len(items)))
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, out)
}
