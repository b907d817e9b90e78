// Command seed creates the groups and, optionally, demo content.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/seed"
)

func main() {
	groupsFile := flag.String("groups", "", "YAML file with the groups to create (default: built-in groups)")
	numUsers := flag.Int("users", 0, "Number of demo users to create")
	postsPerUser := flag.Int("posts", 5, "Posts per demo user")
	commentsPerPost := flag.Int("comments", 2, "Comments per demo post")
	followsPerUser := flag.Int("follows", 3, "Authors each demo user follows")
	seedValue := flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible data")
	fast := flag.Bool("fast", false, "Skip bcrypt for demo passwords (development only)")
	shouldClean := flag.Bool("clean", false, "Delete all content before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, os.Stdout)

	if *fast && cfg.IsProduction() {
		log.Fatal("--fast is not allowed in production")
	}

	var fixtures []seed.GroupFixture
	if *groupsFile != "" {
		fixtures, err = seed.LoadGroupsFile(*groupsFile)
		if err != nil {
			log.Fatalf("Failed to load groups: %v", err)
		}
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	res, err := seed.Run(ctx, db, seed.Options{
		Groups:          fixtures,
		Users:           *numUsers,
		PostsPerUser:    *postsPerUser,
		CommentsPerPost: *commentsPerPost,
		FollowsPerUser:  *followsPerUser,
		Seed:            *seedValue,
		SkipBcrypt:      *fast,
		Clean:           *shouldClean,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d groups, %d users, %d posts, %d comments, %d follows",
		res.Groups, res.Users, res.Posts, res.Comments, res.Follows)
	if res.Users > 0 {
		log.Printf("All demo users have the password: %s", seed.DemoPassword)
	}
}
