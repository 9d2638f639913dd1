package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codraft/codraft/internal/database"
	"github.com/codraft/codraft/internal/document/handler"
	"github.com/codraft/codraft/internal/document/repository"
	"github.com/codraft/codraft/internal/document/service"
	"github.com/codraft/codraft/pkg/logger"
)

// Standalone document REST service: the same storage and version-history
// semantics as the main binary, without the websocket and auth layers. Useful
// for integration tests and for running the history API next to an existing
// deployment.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	port := os.Getenv("DOC_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// Prefer Mongo-backed storage when MONGODB_URI is provided; fall back to
	// memory so the service still comes up without a database.
	svc := service.NewMemoryService()
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		client, err := database.ConnectMongo(context.Background(), uri, 10*time.Second)
		if err != nil {
			logger.Warnf("cannot connect to MongoDB (%v), using memory-backed repo", err)
		} else {
			dbName := os.Getenv("MONGODB_DATABASE")
			if dbName == "" {
				dbName = "codraft"
			}
			col := client.Database(dbName).Collection("documents")
			svc = service.New(repository.NewMongoRepo(col))
		}
	}

	handler.RegisterDocumentRoutes(r.Group("/api/document"), svc)

	logger.Infof("document service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
