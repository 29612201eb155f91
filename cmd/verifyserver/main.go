// Command verifyserver runs the document-verification HTTP API: gin.New()
// plus a lightweight recovery middleware and opt-in heap profiling, the
// same bootstrap shape as cmd/gopdfsuit, pointed at the verification
// routes instead of the PDF-authoring ones.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loanverify/docverify/internal/config"
	"github.com/loanverify/docverify/internal/handlers"
)

func main() {
	if os.Getenv("ENABLE_PROFILING") == "1" {
		f, err := os.Create("/tmp/verifyserver-mem.prof")
		if err != nil {
			log.Printf("could not create memory profile: %v", err)
		} else {
			defer func() {
				if err := f.Close(); err != nil {
					log.Printf("could not close memory profile: %v", err)
				}
			}()
			defer func() {
				log.Println("writing memory profile...")
				if err := pprof.WriteHeapProfile(f); err != nil {
					log.Printf("could not write memory profile: %v", err)
				}
			}()
		}
	}

	cfg := config.Load()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Recovery] panic recovered: %v", r)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	})

	if gin.Mode() == gin.DebugMode {
		router.Use(gin.Logger())
	}

	// Per-document concurrency is bounded inside the orchestrator's page
	// fan-out; this outer semaphore caps concurrent documents in flight,
	// matching cfg.MaxDocumentWorkers.
	maxConcurrent := cfg.MaxDocumentWorkers
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	semaphore := make(chan struct{}, maxConcurrent)
	router.Use(func(c *gin.Context) {
		semaphore <- struct{}{}
		defer func() { <-semaphore }()
		c.Next()
	})

	handlers.RegisterVerifyRoutes(router, cfg)

	addr := os.Getenv("VERIFY_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down verifyserver...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
