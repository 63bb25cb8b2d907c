package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/drgroup/asistencia-go/internal/pkg/validator"
	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Attendance AttendanceConfig
	Sync       SyncConfig
	Local      LocalConfig
	Net        NetConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// AttendanceConfig describes the employee this device belongs to and the
// workday rules applied before an action may be queued.
type AttendanceConfig struct {
	UID         string
	Dispositivo string
	// StartTime is the scheduled jornada start, HH:MM local. Clock-in is
	// rejected earlier than EarlyMargin before it.
	StartTime   string
	EarlyMargin time.Duration
	// Office coordinates label captured fixes as oficina/remoto.
	// OfficeRadiusM == 0 disables labeling.
	OfficeLat     float64
	OfficeLon     float64
	OfficeRadiusM float64
}

type SyncConfig struct {
	Retries       int
	Timeout       time.Duration
	Backoff       time.Duration
	DrainInterval time.Duration
	PruneAge      time.Duration
}

type LocalConfig struct {
	Path string
}

type NetConfig struct {
	ProbeURL      string
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "asistencias"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	uid := getEnv("ASISTENCIA_UID", "")
	if validator.IsEmpty(uid) {
		return nil, fmt.Errorf("ASISTENCIA_UID is required")
	}
	startTime := getEnv("JORNADA_START_TIME", "09:00")
	if !validator.IsValidTimeHM(startTime) {
		return nil, fmt.Errorf("invalid JORNADA_START_TIME %q, want HH:MM", startTime)
	}
	earlyMargin, err := getEnvMinutes("JORNADA_EARLY_MARGIN_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	hostname, _ := os.Hostname()
	config.Attendance = AttendanceConfig{
		UID:           uid,
		Dispositivo:   getEnv("ASISTENCIA_DISPOSITIVO", hostname),
		StartTime:     startTime,
		EarlyMargin:   earlyMargin,
		OfficeLat:     getEnvFloat("OFFICE_LAT", 0),
		OfficeLon:     getEnvFloat("OFFICE_LON", 0),
		OfficeRadiusM: getEnvFloat("OFFICE_RADIUS_M", 0),
	}

	retries, err := strconv.Atoi(getEnv("SYNC_RETRIES", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_RETRIES: %w", err)
	}
	timeout, err := getEnvSeconds("SYNC_TIMEOUT_SECONDS", 8)
	if err != nil {
		return nil, err
	}
	backoff, err := getEnvSeconds("SYNC_BACKOFF_SECONDS", 1)
	if err != nil {
		return nil, err
	}
	drainInterval, err := getEnvMinutes("SYNC_DRAIN_INTERVAL_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	pruneDays, err := strconv.Atoi(getEnv("SYNC_PRUNE_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_PRUNE_DAYS: %w", err)
	}
	config.Sync = SyncConfig{
		Retries:       retries,
		Timeout:       timeout,
		Backoff:       backoff,
		DrainInterval: drainInterval,
		PruneAge:      time.Duration(pruneDays) * 24 * time.Hour,
	}

	config.Local = LocalConfig{
		Path: getEnv("LOCAL_STORE_PATH", "asistencia.db"),
	}

	probeInterval, err := getEnvSeconds("NET_PROBE_INTERVAL_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	probeTimeout, err := getEnvSeconds("NET_PROBE_TIMEOUT_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	config.Net = NetConfig{
		ProbeURL:      getEnv("NET_PROBE_URL", "https://clients3.google.com/generate_204"),
		ProbeInterval: probeInterval,
		ProbeTimeout:  probeTimeout,
	}

	return config, nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvSeconds(key string, defaultValue int) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}

func getEnvMinutes(key string, defaultValue int) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Minute, nil
}
