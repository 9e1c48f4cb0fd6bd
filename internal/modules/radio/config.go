package radio

import "time"

// Config holds the radio module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`

	CatalogPath string `env:"PHANTOM_RADIO_CATALOG_PATH" envDefault:"phantom-melody.db"`
	MusicDir    string `env:"PHANTOM_RADIO_MUSIC_DIR"    envDefault:"music"`

	MaxQueueSize      int `env:"PHANTOM_RADIO_MAX_QUEUE_SIZE"     envDefault:"20"`
	MaxPerUser        int `env:"PHANTOM_RADIO_MAX_SONGS_PER_USER" envDefault:"5"`
	SkipVotesRequired int `env:"PHANTOM_RADIO_SKIP_VOTES"         envDefault:"5"`

	TurnDuration            time.Duration `env:"PHANTOM_RADIO_TURN_DURATION"   envDefault:"2m"`
	IdleDisconnectThreshold time.Duration `env:"PHANTOM_RADIO_IDLE_DISCONNECT" envDefault:"20m"`
	ReaperInterval          time.Duration `env:"PHANTOM_RADIO_REAPER_INTERVAL" envDefault:"3m"`
}
