package auction

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bhavindev/cricket-auction/auction/database"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig         `toml:"log"`
	DB     database.DBConfig `toml:"db"`
	Spaces SpacesConfig      `toml:"spaces"`
	Legacy LegacyConfig      `toml:"legacy"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

// SpacesConfig configures the blob storage collaborator. When Key is empty
// the service is not started and photo/logo uploads are unavailable.
type SpacesConfig struct {
	Key    string `toml:"key"`
	Secret string `toml:"secret"`
	Region string `toml:"region"`
	Bucket string `toml:"bucket"`
}

// LegacyConfig points at the predecessor system's MongoDB for the one-shot
// import of players and teams.
type LegacyConfig struct {
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}
