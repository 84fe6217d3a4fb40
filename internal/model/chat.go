package model

type ChatRecord struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	Query      string `json:"query"`
	ResponseID string `json:"response_id"`
	Answer     string `json:"answer"`
	Mode       string `json:"mode"`
	Ctime      int64  `json:"ctime"`
}
