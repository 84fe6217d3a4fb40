package model

// ChunkPosition locates a chunk inside its book. Page is approximate:
// it is derived from the chunk ordinal, not from any real pagination.
type ChunkPosition struct {
	Chapter   int `json:"chapter"`
	Page      int `json:"page"`
	Paragraph int `json:"paragraph"`
}

type ContentChunk struct {
	ID       string        `json:"id"`
	BookID   string        `json:"book_id"`
	Text     string        `json:"text"`
	Position ChunkPosition `json:"position"`
	VectorID string        `json:"vector_id"`
	Ctime    int64         `json:"ctime"`
}
