package ui

// Config contains TUI-specific configuration.
type Config struct {
	Category string
	Language string
	AutoPlay bool

	GlamourMaxWidth uint
	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	EnableMouse     bool

	// For debugging the UI
	GlamourEnabled bool `env:"NEWSREADER_ENABLE_GLAMOUR" envDefault:"true"`
	ShowStats      bool `env:"NEWSREADER_SHOW_STATS" envDefault:"false"`
}
