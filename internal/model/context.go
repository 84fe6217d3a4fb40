package model

// Mode selects the retrieval/generation strategy for a chat turn.
const (
	ModeFullBook         = "full_book"
	ModeSelectedTextOnly = "selected_text_only"
)

const (
	OriginRetrieved    = "retrieved"
	OriginUserSelected = "user_selected"
)

// ContextItem is an ephemeral passage handed from the retriever to the
// generator. Position is zero-valued for user-selected text.
type ContextItem struct {
	Text     string        `json:"text"`
	Score    float32       `json:"score"`
	Position ChunkPosition `json:"position"`
	Origin   string        `json:"origin"`
}

// Citation is derived from a ContextItem after generation. Validated is
// a best-effort textual grounding check, not a correctness guarantee.
type Citation struct {
	Text      string  `json:"text"`
	Chapter   int     `json:"chapter"`
	Page      int     `json:"page"`
	Paragraph int     `json:"paragraph"`
	Score     float32 `json:"relevance_score"`
	Origin    string  `json:"origin"`
	Validated bool    `json:"validated"`
}
