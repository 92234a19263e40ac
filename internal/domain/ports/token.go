package ports

// TokenStore supplies the process-wide access token
type TokenStore interface {
	// GetOrCreate returns the persisted token, creating one on first use
	GetOrCreate() (string, error)
	// Regenerate replaces the token and returns the new value
	Regenerate() (string, error)
	// Current returns the active token without touching storage
	Current() string
}

// TokenGenerator creates random access tokens
type TokenGenerator interface {
	Generate() (string, error)
}
