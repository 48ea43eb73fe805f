package engine

import (
	"context"
	"fmt"

	"github.com/Goluxas/jp-image-to-dict/internal/config"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr"
)

// New builds the backend selected by cfg.Engine. The caller owns the engine
// and must Close it.
func New(ctx context.Context, cfg *config.Config) (ocr.Engine, error) {
	var e ocr.Engine
	var err error

	switch cfg.Engine {
	case config.EngineCloud, "":
		e, err = NewCloudVisionEngine(ctx, cfg.CredentialsFile, cfg.CloudTimeout)
	case config.EngineLocal:
		e, err = NewTesseractEngine(cfg.LocalPSM)
	case config.EngineOllama:
		e = NewOllamaEngine(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaTimeout)
	default:
		return nil, fmt.Errorf("unknown engine type: %s", cfg.Engine)
	}
	if err != nil {
		return nil, err
	}

	logger.WithComponent("engine").Infof("using %s engine", e.Name())
	return e, nil
}
