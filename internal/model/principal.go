package model

// Principal is the signed-in user that owns a notification set.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IsZero reports whether no principal is signed in.
func (p Principal) IsZero() bool {
	return p.ID == ""
}
