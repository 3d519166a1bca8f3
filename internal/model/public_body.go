package model

// PublicBody represents an authority that requests are made to
type PublicBody struct {
	ID   int64
	Name string
}
