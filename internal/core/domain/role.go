package domain

// Role is referenced by users through its numeric identifier.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
