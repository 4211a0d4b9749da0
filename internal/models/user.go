package models

// User is a known caller, keyed by the subject of their credential
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
