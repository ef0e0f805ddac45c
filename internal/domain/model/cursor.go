package model

import "time"

// Cursor marks the oldest operation of the previous page. Every following
// query only returns records strictly older than it.
type Cursor struct {
	Level     int64
	Timestamp time.Time
	Hash      string
}

// CursorOf derives the cursor anchored at op.
func CursorOf(op RawOperation) Cursor {
	return Cursor{Level: op.Level, Timestamp: op.Timestamp, Hash: op.Hash}
}
