package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Goluxas/jp-image-to-dict/internal/config"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr/engine"
	"github.com/Goluxas/jp-image-to-dict/internal/server"
)

func main() {
	log := logger.WithComponent("ocr-server")

	if err := godotenv.Load(); err != nil {
		log.Debug(".env not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetDebug(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ocrEngine, err := engine.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to create OCR engine")
	}
	defer ocrEngine.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(ocrEngine, cfg).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).WithField("engine", ocrEngine.Name()).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.Info("Server exited")
}
