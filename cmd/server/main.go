package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comentum/internal/config"
	"comentum/internal/db"
	"comentum/internal/handlers"
	"comentum/internal/models"
	"comentum/internal/router"
	"comentum/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db.Init(cfg.DatabaseURL)
	seedPosts()

	targets := services.NewTargetResolver(db.DB)
	registerPostTarget(targets)

	bus := services.NewBus()
	comments := services.NewCommentService(db.DB, cfg, targets, bus)
	reactions := services.NewReactionService(db.DB, bus)
	flags := services.NewFlagService(db.DB, cfg, bus)
	blocking := services.NewBlockingRegistry(db.DB, cfg)
	followers := services.NewFollowerService(db.DB, cfg)
	authz := services.NewAuthorizer(cfg, blocking, flags)
	confirm := services.NewConfirmationService(cfg, comments, targets)

	mailer := services.NewMailer(cfg, nil)
	mailer.Start(2)

	notifier := services.NewNotifier(cfg, comments, followers, targets, mailer)
	notifier.Attach(bus)

	deps := &handlers.Deps{
		Cfg:       cfg,
		Targets:   targets,
		Authz:     authz,
		Comments:  comments,
		Reactions: reactions,
		Flags:     flags,
		Blocking:  blocking,
		Followers: followers,
		Mailer:    mailer,
		Confirm:   confirm,
	}

	r := router.Setup(cfg, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	// drain queued notification mail before exit
	mailer.Close()
	log.Println("Server stopped")
}

// registerPostTarget wires the demo host model into the resolver. A real
// host application does the same for its own models.
func registerPostTarget(targets *services.TargetResolver) {
	targets.Register("post", "post", services.TargetModel{
		Exists: func(id uint) (bool, error) {
			var n int64
			err := db.DB.Model(&models.Post{}).Where("id = ?", id).Count(&n).Error
			return n > 0, err
		},
		Describe: func(id uint) string {
			var p models.Post
			if err := db.DB.First(&p, id).Error; err != nil {
				return fmt.Sprintf("post %d", id)
			}
			return p.Title
		},
		PagePath: func(id uint) string {
			return fmt.Sprintf("/post/%d", id)
		},
	})
}

// seedPosts creates a demo post on an empty database.
func seedPosts() {
	var count int64
	db.DB.Model(&models.Post{}).Count(&count)
	if count > 0 {
		return
	}
	post := models.Post{
		Title: "Welcome",
		Body:  "First post. Leave a comment below.",
	}
	if err := db.DB.Create(&post).Error; err != nil {
		log.Printf("Failed to seed demo post: %v", err)
	}
}
