package model

type Book struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Author    string            `json:"author"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	SourceKey string            `json:"source_key,omitempty"`
	Ctime     int64             `json:"ctime"`
}
