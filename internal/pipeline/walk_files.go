package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Goluxas/jp-image-to-dict/internal/logger"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

func walkFiles(ctx context.Context, directory string, results chan<- string) error {
	files, err := os.ReadDir(directory)
	if err != nil {
		logger.DebugLog("[walkFiles]: failed to read directory %s: %v", directory, err)
		return fmt.Errorf("reading directory %s: %w", directory, err)
	}

	for _, file := range files {
		fileName := file.Name()
		if file.IsDir() || !isImageFile(fileName) {
			continue
		}
		fullPath := filepath.Join(directory, fileName)
		logger.DebugLog("[walkFiles]: sending file %s", fullPath)
		select {
		case results <- fullPath:
		case <-ctx.Done():
			logger.DebugLog("[walkFiles]: context done while sending file %s", fullPath)
			return ctx.Err()
		}
	}
	return nil
}

func isImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}
