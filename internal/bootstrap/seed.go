package bootstrap

import (
	"context"
	"errors"
	"os"

	"article-rag-be/internal/pkg/logger"
	"article-rag-be/internal/service"
	"article-rag-be/pkg/loader"
)

// SeedArticles loads path and ingests it. A missing file is logged and
// tolerated; any other failure is logged and returned.
func SeedArticles(ctx context.Context, articleService service.IArticleService, path string, log logger.ILogger) (int, error) {
	articles, err := loader.LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("SEED", "Seed file not found, starting with an empty index", map[string]interface{}{
			"path": path,
		})
		return 0, nil
	}
	if err != nil {
		log.Error("SEED", "Failed to load seed file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return 0, err
	}

	count, err := articleService.Ingest(ctx, articles)
	if err != nil {
		log.Error("SEED", "Failed to ingest seed articles", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return 0, err
	}

	log.Info("SEED", "Seed articles ingested", map[string]interface{}{
		"path":  path,
		"count": count,
	})
	return count, nil
}
