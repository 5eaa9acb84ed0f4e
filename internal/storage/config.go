package storage

import "os"

// StoreMode represents the persistence backend
type StoreMode string

const (
	StoreModeMemory StoreMode = "memory"
	StoreModeLocal  StoreMode = "local" // DynamoDB local
	StoreModeAWS    StoreMode = "aws"
)

// StoreConfig holds storage configuration
type StoreConfig struct {
	Mode           StoreMode
	Endpoint       string // for local mode
	Region         string
	AgentsTable    string
	PauseLogsTable string
	ReportsTable   string
}

// LoadStoreConfig loads storage config from environment
func LoadStoreConfig() StoreConfig {
	mode := StoreMode(getEnv("STORE_MODE", "memory"))
	if mode != StoreModeLocal && mode != StoreModeAWS {
		mode = StoreModeMemory
	}

	return StoreConfig{
		Mode:           mode,
		Endpoint:       getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
		Region:         getEnv("DYNAMO_REGION", "sa-east-1"),
		AgentsTable:    getEnv("DYNAMO_AGENTS_TABLE", "dashsac-agents"),
		PauseLogsTable: getEnv("DYNAMO_PAUSE_LOGS_TABLE", "dashsac-pause-logs"),
		ReportsTable:   getEnv("DYNAMO_REPORTS_TABLE", "dashsac-daily-reports"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
