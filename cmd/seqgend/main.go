// seqgend is the demo host process for the observation sequence
// generator: it loads configuration, opens the history store, and
// serves the JSON HTTP surface a caller drives generation through.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/obsseq/internal/historystore"
	"github.com/codeready-toolchain/obsseq/internal/httpapi"
	"github.com/codeready-toolchain/obsseq/internal/obsrun"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	log.Printf("Starting seqgend")
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx := context.Background()

	dbConfig, err := historystore.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	store, err := historystore.Open(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to history store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing history store: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL history store")

	registry := obsrun.NewRegistry()
	server := httpapi.NewServer(store, registry)

	log.Printf("HTTP server listening on :%s", httpPort)
	if err := server.Engine().Run(":" + httpPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
