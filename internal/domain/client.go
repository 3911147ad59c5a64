package domain

import "time"

// Role is the conversation-state tag driving how inbound texts are handled.
type Role string

const (
	RoleNone     Role = "NONE"
	RolePending  Role = "PENDING"
	RoleUpdating Role = "UPDATING"
	RoleUser     Role = "USER"
)

// Direction marks which way a conversation entry travelled.
type Direction string

const (
	DirectionInbound  Direction = "in"
	DirectionOutbound Direction = "out"
)

// Client is a subscriber identified by phone number.
//
// While Role is PENDING or UPDATING, Location holds the unconfirmed
// candidate awaiting a yes/no answer (or is empty). Once Role is USER,
// Location is a geocoder-canonicalized address.
type Client struct {
	ID            string
	Phone         string
	Role          Role
	Location      string
	CreatedAt     time.Time
	LastMessageAt time.Time
}

// ConversationEntry is one line of the append-only per-client audit trail.
type ConversationEntry struct {
	At        time.Time
	Direction Direction
	Body      string
}
