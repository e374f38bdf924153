// Package main implements tac-status, a read-only HTTP endpoint that
// exposes the tail of a `tac make` run's forensic session event log
// (internal/sessionlog) as JSON. Adapted from the pack's gin-based
// health-check server (cmd/tarsy): a minimal router with one handler
// reading already-persisted state, no request body, no mutation.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/vinayprograms/tac/internal/sessionlog"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	logPath := flag.String("log", getEnv("TAC_SESSION_LOG", "./.tac/session.jsonl"), "path to the session event log")
	httpPort := getEnv("HTTP_PORT", "8090")
	flag.Parse()

	gin.SetMode(getEnv("GIN_MODE", "release"))
	router := gin.Default()

	router.GET("/status", func(c *gin.Context) {
		last, ok, err := sessionlog.Last(*logPath)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"status": "idle"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "running",
			"phase":  last.Phase,
			"message": last.Message,
			"timestamp": last.Timestamp,
		})
	})

	router.GET("/events", func(c *gin.Context) {
		events, err := sessionlog.ReadAll(*logPath)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	})

	log.Printf("tac-status listening on :%s, reading %s", httpPort, *logPath)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("tac-status: server failed: %v", err)
	}
}
