package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Goluxas/jp-image-to-dict/internal/logger"
)

func main() {
	log := logger.WithComponent("ocr-tool")
	if err := godotenv.Load(); err != nil {
		log.Debug(".env not found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := NewCLI()
	if err := cli.Run(ctx, os.Args[1:]); err != nil {
		log.WithError(err).Fatal("ocr-tool failed")
	}
}
