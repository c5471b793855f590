package chat

import "time"

// Session is a client-chosen conversation identity. It lives for the lifetime
// of the process.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
