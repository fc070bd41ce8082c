package models

// ChatThread is a one-to-one conversation between the current user and one
// other user
type ChatThread struct {
	ID        int64     `json:"id"`
	OtherUser BriefUser `json:"other_user"`
	CreatedAt string    `json:"created_at"`
}

// ChatMessage is one message within a thread
type ChatMessage struct {
	ID        int64     `json:"id"`
	Sender    BriefUser `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt string    `json:"created_at"`
}
