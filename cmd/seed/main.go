// Command seed fills the database with the demo fixtures and fake content.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"isintu/internal/config"
	"isintu/internal/database"
	"isintu/internal/middleware"
	"isintu/internal/seed"
)

func main() {
	fixturesPath := flag.String("fixtures", "", "YAML fixtures file (defaults to the bundled demo content)")
	numUsers := flag.Int("users", 20, "Number of generated users")
	numPosts := flag.Int("posts", 60, "Number of generated posts")
	clean := flag.Bool("clean", false, "Delete all content before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for generated content (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, os.Getenv("LOG_LEVEL"))

	opts := seed.Options{
		NumUsers: *numUsers,
		NumPosts: *numPosts,
		Clean:    *clean,
		RandSeed: *randSeed,
	}
	if *fixturesPath != "" {
		fixtures, err := seed.LoadFixtures(*fixturesPath)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v", err)
		}
		opts.Fixtures = fixtures
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	summary, err := seed.Seed(context.Background(), db, opts)
	if err != nil {
		_ = database.Close()
		log.Fatalf("Seeding failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)
	log.Printf("Generated users share the password %q", seed.DefaultPassword)
}
