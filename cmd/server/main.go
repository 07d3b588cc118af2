package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Hosfad/pooljs-remastered-sub000/internal/api"
	"github.com/Hosfad/pooljs-remastered-sub000/internal/config"
	"github.com/Hosfad/pooljs-remastered-sub000/internal/game"
	"github.com/Hosfad/pooljs-remastered-sub000/internal/redis"
	"github.com/Hosfad/pooljs-remastered-sub000/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	registry := game.NewRegistry(cfg.MaxActivePlayers)
	relay := ws.NewRelay(registry, cfg)

	// Optional Redis bridge: lets multiple relay instances share a
	// room's event stream. Rooms themselves are process-memory only.
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()

		bridge := ws.NewBridge(rdb)
		relay.SetBridge(bridge)
		go bridge.Run(context.Background(), relay)
	}

	// Enforce the per-turn time limit on the server clock.
	worker := game.NewRoundWorker(
		registry,
		time.Duration(cfg.RoundSeconds)*time.Second,
		time.Duration(cfg.RoundWorkerPollSeconds)*time.Second,
		relay.NotifyRoomUpdate,
	)
	go worker.Run(context.Background())

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, registry, relay, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting pool relay on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
