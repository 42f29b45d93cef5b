package enrollment

import "time"

// Record holds a user's reference face embedding. One record per user; the
// gate only cares about existence, the capture flow about the vector itself.
type Record struct {
	UserID    string
	Embedding []float64
	CreatedAt time.Time
	UpdatedAt time.Time
}
