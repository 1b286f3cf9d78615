// Command seed populates the database with demo users, posts, and threaded
// comments. Development use only.
package main

import (
	"flag"
	"log"

	"threadline/internal/config"
	"threadline/internal/database"
	"threadline/internal/seed"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.Users, "users", opts.Users, "number of users to create")
	flag.IntVar(&opts.Posts, "posts", opts.Posts, "number of posts to create")
	flag.IntVar(&opts.CommentsPerPost, "comments", opts.CommentsPerPost, "max top-level comments per post")
	flag.IntVar(&opts.RepliesPerThread, "replies", opts.RepliesPerThread, "max replies per comment")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
