package internal

// Option is a functional option for configuring the application before
// Run wires the agent together.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig sets the validated application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
