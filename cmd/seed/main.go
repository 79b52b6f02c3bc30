// Command seed fills the configured database with demo accounts and posts.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"feedhub/internal/config"
	"feedhub/internal/database"
	"feedhub/internal/middleware"
	"feedhub/internal/seed"
	"feedhub/internal/server"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of users to create")
	postsPerUser := flag.Int("posts", 3, "Number of posts per user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Fixed random seed (0 for random)")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d posts each, clean=%v\n", *numUsers, *postsPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.Configure(cfg.Env, cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	images, err := server.NewImageStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up image store: %v", err)
	}

	s := seed.NewSeeder(db, images, cfg.MaxUploadBytes)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.Run(ctx, seed.Options{
		NumUsers:     *numUsers,
		PostsPerUser: *postsPerUser,
		Seed:         *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: %d users, %d posts\n", len(res.Users), len(res.Posts))
	log.Printf("All seeded users have the password: %s\n", seed.DefaultPassword)
}
