package core

import "time"

// Note is the owner's scratch pad. It is unrelated to entries and is saved
// whole, last write wins.
type Note struct {
	OwnerID   string    `json:"owner_id" yaml:"owner_id"`
	Content   string    `json:"content" yaml:"content"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
