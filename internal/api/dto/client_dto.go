package dto

import "time"

// ClientResponse is the admin view of a subscriber record.
type ClientResponse struct {
	ID            string    `json:"id"`
	Phone         string    `json:"phone"`
	Role          string    `json:"role"`
	Location      string    `json:"location"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ConversationEntryResponse is one audit-trail line.
type ConversationEntryResponse struct {
	At        time.Time `json:"at"`
	Direction string    `json:"direction"`
	Body      string    `json:"body"`
}
