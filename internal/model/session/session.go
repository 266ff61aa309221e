package session

import "time"

// Session correlates one WebSocket connection with one backend conversation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
