package model

type Session struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id,omitempty"`
	Metadata string `json:"metadata,omitempty"`
	Ctime    int64  `json:"ctime"`
	Mtime    int64  `json:"mtime"`
}
