package config

// EventsConfig controls forwarding of price changes onto the message bus
type EventsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Topic      string `mapstructure:"topic" validate:"required_if=Enabled true"`
	BufferSize int64  `mapstructure:"buffer_size" validate:"min=0"`
}
