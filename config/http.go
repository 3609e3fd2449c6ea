package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the externally reachable base URL of the worker
	// (e.g., "https://drills.example.com"). Signed asset links are
	// generated relative to this URL.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
}
