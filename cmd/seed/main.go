package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/nosh-kitchen/nosh-backend/internal/config"
	"github.com/nosh-kitchen/nosh-backend/internal/database"
	"github.com/nosh-kitchen/nosh-backend/internal/dish"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/repository"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/service"
	"github.com/nosh-kitchen/nosh-backend/pkg/logger"
)

// Seeds the dish collection from a JSON file. Skips entirely when the
// collection already has documents, so it is safe to run on every deploy.
func main() {
	file := flag.String("file", "dish-assignment.json", "path to the seed data JSON")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is required for seeding")
	}

	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	col := client.Database(cfg.MongoDB.Database).Collection("dishes")
	repo, err := repository.NewMongoRepo(ctx, col)
	if err != nil {
		logger.Fatalf("failed to initialize dish collection: %v", err)
	}

	existing, err := repo.Count(ctx)
	if err != nil {
		logger.Fatalf("failed to count dishes: %v", err)
	}
	if existing > 0 {
		logger.Infof("database already has %d dishes, skipping seed", existing)
		return
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatalf("failed to read seed file %s: %v", *file, err)
	}
	var dishes []dish.Dish
	if err := json.Unmarshal(raw, &dishes); err != nil {
		logger.Fatalf("failed to parse seed file: %v", err)
	}

	// validate through the service; no broadcaster, nobody is listening yet
	svc := service.New(repo, nil)
	seeded := 0
	for i := range dishes {
		d := dishes[i]
		created, err := svc.Create(ctx, &d)
		if err != nil {
			logger.Errorf("skipping %q: %v", d.DishID, err)
			continue
		}
		state := "Unpublished"
		if created.IsPublished {
			state = "Published"
		}
		logger.Infof("seeded %s (ID: %s) - %s", created.DishName, created.DishID, state)
		seeded++
	}
	logger.Infof("successfully seeded %d of %d dishes", seeded, len(dishes))
}
