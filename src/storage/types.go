package storage

import "time"

// Record is one key-value row
type Record struct {
	Key       string    `json:"key" db:"key"`
	Value     []byte    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
