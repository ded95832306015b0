package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"d20adventures/config"
	"d20adventures/db"
	"d20adventures/email"
	"d20adventures/gm"
	"d20adventures/handlers"
	"d20adventures/middleware"
	"d20adventures/session"
	"d20adventures/storage"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := db.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB: ", err)
	}
	defer store.Close()

	documents, err := storage.NewDocumentStore(cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatal("Failed to connect to object storage: ", err)
	}

	narrator, err := gm.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal("Failed to create game master client: ", err)
	}

	var mailer handlers.Mailer
	if cfg.EmailEnabled {
		client, err := email.NewClient(cfg.ResendAPIKey, cfg.EmailFrom, cfg.EmailFromName)
		if err != nil {
			log.Fatal("Failed to create email client: ", err)
		}
		mailer = client
	} else {
		log.Println("[EMAIL] RESEND_API_KEY not set, party invites disabled")
	}

	sessions := session.NewService(store, documents, narrator)

	router := mux.NewRouter()
	h := handlers.New(cfg, sessions, documents, narrator, mailer)
	h.Routes(router)

	fmt.Printf("Server running on http://localhost%s\n", cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, middleware.EnableCORS(cfg.AllowedOrigins, router)))
}
