package app

// Config holds runtime configuration for the server.
type Config struct {
	// Listing API
	APIKey     string
	BaseURL    string
	WindowDays int

	// Offline source: when set, listings come from this JSON file instead
	// of the live API.
	ListingsFile string

	// Serving. Empty means stdio transport.
	Listen string

	// Attachments
	UserAgent     string
	FetchAttempts int
	MaxFetchBytes int64

	// Behavior
	Verbose bool
}
