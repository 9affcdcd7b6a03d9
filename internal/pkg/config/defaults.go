package config

import "time"

// Default values for configuration.
const (
	// Paths
	DefaultAccountFile  = "./config/accounts.yaml"
	DefaultSettingsFile = "./config/app_settings.yaml"
	DefaultInbox        = "./inbox"
	DefaultOutbox       = "./output"

	// Names
	DefaultAudienceName = "default_audience"
	DefaultSegmentName  = "default_segment"

	// API defaults
	DefaultBaseURL    = "https://data-api.twitter.com"
	DefaultAPITimeout = 30 * time.Second
	DefaultChunkSize  = 100_000

	// Mock server defaults
	DefaultMockAddr        = "127.0.0.1:8089"
	DefaultShutdownTimeout = 15 * time.Second

	// Logging defaults
	DefaultLogLevel = "info"
)
