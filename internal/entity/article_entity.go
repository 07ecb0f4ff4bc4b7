package entity

// Article is a news article as held by the vector index. It is never mutated
// after ingest; sessions keep their own copy of the selected one.
type Article struct {
	Id       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// SearchResult is a single hit returned to clients.
//
// Score is 0.0 on the category listing path and a cosine distance on the
// semantic path. The two are not comparable.
type SearchResult struct {
	Id       string  `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}
