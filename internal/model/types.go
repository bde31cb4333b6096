package model

// ================== 通用响应 ==================

// APIResponse is the standard API response format
type APIResponse struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ================== 指令交互 ==================

// ReplyType tells the chat adapter how to deliver a reply
type ReplyType string

const (
	ReplyPlain ReplyType = "plain"
	ReplyImage ReplyType = "image"
)

// Reply is what a command hands back to the chat host.
// For ReplyImage the content is an image URL.
type Reply struct {
	Type    ReplyType `json:"type"`
	Content string    `json:"content"`
}

// PlainReply builds a text reply
func PlainReply(text string) Reply {
	return Reply{Type: ReplyPlain, Content: text}
}

// ImageReply builds an image reply
func ImageReply(url string) Reply {
	return Reply{Type: ReplyImage, Content: url}
}

// CommandRequest is the webhook payload posted by a chat adapter
type CommandRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// CommandInfo describes a registered command
type CommandInfo struct {
	Name  string `json:"name"`
	Usage string `json:"usage"`
}

// ================== 展示模型 ==================

// RenderItem is the display-ready view of one subject.
// JSON keys match the day image template context.
type RenderItem struct {
	Rank          int      `json:"rank"`
	SubjectID     int      `json:"subject_id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title"`
	URL           string   `json:"url"`
	RatingText    string   `json:"rating_text"`
	RatingScore   string   `json:"rating_score"`
	RatingTotal   int      `json:"rating_total"`
	Cover         string   `json:"cover"`
	Tags          []string `json:"tags"`
	Summary       string   `json:"summary"`
}

// CollectionStats holds how many users marked a subject per status
type CollectionStats struct {
	Wish    int `json:"wish"`
	Doing   int `json:"doing"`
	Done    int `json:"done"`
	OnHold  int `json:"on_hold"`
	Dropped int `json:"dropped"`
}

// SubjectDetail is the display-ready view of a single subject lookup
type SubjectDetail struct {
	RenderItem
	RankPosition int             `json:"rank_position"`
	Episodes     int             `json:"episodes"`
	AirDate      string          `json:"air_date"`
	Platform     string          `json:"platform,omitempty"`
	Collection   CollectionStats `json:"collection"`
}

// DayImageData is the template context for the day image
type DayImageData struct {
	Heading     string       `json:"heading"`
	DateText    string       `json:"date_text"`
	WeekdayText string       `json:"weekday_text"`
	Count       int          `json:"count"`
	Items       []RenderItem `json:"items"`
}
