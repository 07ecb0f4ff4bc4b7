package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"article-rag-be/internal/entity"

	"github.com/google/uuid"
)

// DefaultCategory is assigned to records that carry no category.
const DefaultCategory = "all"

type articleRecord struct {
	Id       string  `json:"id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category *string `json:"category"`
}

// LoadFile reads a JSON array of article records from path.
func LoadFile(path string) ([]*entity.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

// Load decodes a JSON array of article records. Records without an id get a
// generated uuid; records without a category get DefaultCategory.
func Load(r io.Reader) ([]*entity.Article, error) {
	var records []articleRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode articles: %w", err)
	}

	articles := make([]*entity.Article, 0, len(records))
	for i, rec := range records {
		if rec.Title == "" || rec.Content == "" {
			return nil, fmt.Errorf("article at index %d: title and content are required", i)
		}

		id := rec.Id
		if id == "" {
			id = uuid.NewString()
		}
		category := DefaultCategory
		if rec.Category != nil {
			category = *rec.Category
		}

		articles = append(articles, &entity.Article{
			Id:       id,
			Title:    rec.Title,
			Category: category,
			Content:  rec.Content,
		})
	}

	return articles, nil
}
