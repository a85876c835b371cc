package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Postgres holds the connection parameters for the case store database.
type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Kafka holds the broker list and topics for outbound events.
type Kafka struct {
	Brokers    []string
	EventTopic string
	GroupID    string
}

// Policy captures the engine's time-bounded obligations. All values are
// overridable through the environment.
type Policy struct {
	ResponseDeadline   time.Duration
	ProposalDeadline   time.Duration
	EscalationWindow   time.Duration
	MaxMediationRounds int
}

// Config is the full engine configuration, loaded once at startup.
type Config struct {
	HTTPPort           string
	Postgres           Postgres
	Kafka              Kafka
	Policy             Policy
	OrderServiceURL    string
	PaymentURL         string
	ScoringURL         string
	SchedulerWorkers   int
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
}

// Load reads .env (searching upward like the service binaries are run from
// cmd/ subdirectories) and materializes the configuration from environment
// variables with engine defaults.
func Load() Config {
	loadEnv()

	return Config{
		HTTPPort: getEnv("HTTP_PORT", "9000"),
		Postgres: Postgres{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "resolution"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "resolution"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: Kafka{
			Brokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			EventTopic: getEnv("KAFKA_EVENT_TOPIC", "case-events"),
			GroupID:    getEnv("KAFKA_GROUP_ID", "case-events-consumer-group"),
		},
		Policy: Policy{
			ResponseDeadline:   time.Duration(getEnvInt("RESPONSE_DEADLINE_HOURS", 72)) * time.Hour,
			ProposalDeadline:   time.Duration(getEnvInt("PROPOSAL_DEADLINE_HOURS", 72)) * time.Hour,
			EscalationWindow:   time.Duration(getEnvInt("ESCALATION_WINDOW_HOURS", 7*24)) * time.Hour,
			MaxMediationRounds: getEnvInt("MAX_MEDIATION_ROUNDS", 3),
		},
		OrderServiceURL:    getEnv("ORDER_SERVICE_URL", "http://localhost:9100"),
		PaymentURL:         getEnv("PAYMENT_SERVICE_URL", "http://localhost:9200"),
		ScoringURL:         getEnv("SCORING_SERVICE_URL", "http://localhost:9300"),
		SchedulerWorkers:   getEnvInt("SCHEDULER_WORKERS", 4),
		OutboxPollInterval: time.Duration(getEnvInt("OUTBOX_POLL_MS", 500)) * time.Millisecond,
		OutboxBatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 20),
		OutboxMaxAttempts:  getEnvInt("OUTBOX_MAX_ATTEMPTS", 5),
	}
}

func loadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("config: cannot resolve working directory: %v", err)
		return
	}

	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	for _, envPath := range possiblePaths {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf("config: loaded environment from %s", envPath)
			return
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid integer for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
