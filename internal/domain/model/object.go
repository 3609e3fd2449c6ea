package model

import "time"

// StoredObject is one artifact blob persisted by the worker.
type StoredObject struct {
	Path        string    `json:"path"         db:"path"`
	ContentType string    `json:"content_type" db:"content_type"`
	Data        []byte    `json:"-"            db:"data"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}
