package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all configuration for the application
type Config struct {
	// Game configuration
	Game GameConfig `json:"game"`

	// Data configuration
	Data DataConfig `json:"data"`

	// Server configuration
	Server ServerConfig `json:"server"`
}

// GameConfig holds game specific configuration
type GameConfig struct {
	// Default starting money for a new player
	StartingMoney int `json:"starting_money"`

	// Default starting time spent (days)
	StartingTime int `json:"starting_time"`

	// Space every player starts on
	StartingSpace string `json:"starting_space"`

	// Space that ends the game when reached
	FinishSpace string `json:"finish_space"`

	// Time penalty (days) applied to committed state on a try-again
	TryAgainTimePenalty int `json:"try_again_time_penalty"`

	// Project scope contributed by each W card
	ScopePerWCard int `json:"scope_per_w_card"`

	// Hard turn limit; 0 disables the limit
	MaxTurns int `json:"max_turns"`

	// Maximum number of players in a game
	MaxPlayers int `json:"max_players"`

	// Negotiation expiry in minutes
	NegotiationExpiry int `json:"negotiation_expiry"`
}

// DataConfig holds content data configuration
type DataConfig struct {
	// Directory containing the content CSV files
	Dir string `json:"dir"`

	// Path for game state snapshots
	SnapshotPath string `json:"snapshot_path"`
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	// Server port
	Port string `json:"port"`

	// Log level (debug, info, warn, error)
	LogLevel string `json:"log_level"`

	// Allowed CORS origins for the browser UI
	AllowedOrigins []string `json:"allowed_origins"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Game: GameConfig{
			StartingMoney:       0,
			StartingTime:        0,
			StartingSpace:       "OWNER-SCOPE-INITIATION",
			FinishSpace:         "FINISH",
			TryAgainTimePenalty: 1,
			ScopePerWCard:       500000,
			MaxTurns:            50,
			MaxPlayers:          4,
			NegotiationExpiry:   10,
		},
		Data: DataConfig{
			Dir:          "./data",
			SnapshotPath: "./data/game_state.json",
		},
		Server: ServerConfig{
			Port:           "8080",
			LogLevel:       "info",
			AllowedOrigins: []string{"*"},
		},
	}
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return config, err
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Create default config file
		file, err := os.Create(path)
		if err != nil {
			return config, err
		}
		defer file.Close()

		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(config); err != nil {
			return config, err
		}

		return config, nil
	}

	// Read config file
	file, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return config, err
	}

	return config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config Config, path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Create or truncate file
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// Write config to file
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return err
	}

	return nil
}
