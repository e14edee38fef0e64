// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, the
// scheduling grid, notification timings, delivery and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "mission-scheduler")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SchedulingConfig defines the slot grid and calendar settings.
type SchedulingConfig struct {
	BusinessStart   time.Duration  // BUSINESS_HOURS_START, e.g. "09:00"
	BusinessEnd     time.Duration  // BUSINESS_HOURS_END, e.g. "18:00"
	SlotStep        time.Duration  // SLOT_STEP
	MissionDuration time.Duration  // MISSION_DURATION
	TimeZone        string         // TIMEZONE (IANA name)
	Location        *time.Location // resolved from TimeZone
	SlotCapacity    int            // SLOT_CAPACITY; 0 = unlimited global occupancy
}

// NotificationConfig defines reminder, alert and sweep settings.
type NotificationConfig struct {
	ReminderLeadDays  int           // EXIT_REMINDER_LEAD_DAYS
	OverdueGrace      time.Duration // OVERDUE_GRACE
	RealertInterval   time.Duration // OVERDUE_REALERT_INTERVAL
	Retention         time.Duration // NOTIFICATION_RETENTION
	DeliveryTimeout   time.Duration // DELIVERY_TIMEOUT
	ClaimTTL          time.Duration // CLAIM_TTL, age after which a stuck "sending" claim is released
	WorkerLimit       int           // WORKER_LIMIT
	BatchSize         int           // SWEEP_BATCH_SIZE
	OpsUserIDs        []string      // OPS_USER_IDS (csv)
	IncidentSweepWait time.Duration // INCIDENT_SWEEP_GRACE, wait after end_date before exit_overdue
}

// DeliveryConfig selects and configures the outbound delivery channel.
type DeliveryConfig struct {
	Channel      string   // DELIVERY_CHANNEL: log|kafka
	KafkaBrokers []string // KAFKA_BROKERS (csv)
	KafkaTopic   string   // KAFKA_TOPIC
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath       string // SQLite path
	AuthzEnabled bool   // enforce role capabilities on mutating routes

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Domain
	Scheduling    SchedulingConfig
	Notifications NotificationConfig
	Delivery      DeliveryConfig

	// Observability
	OTEL OTELConfig
}

// Load builds a Config from the environment. Unset or unparsable values fall
// back to defaults; the result is then normalized and validated section by
// section.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:       getenv("DB_PATH", "missions.db"),
		AuthzEnabled: getbool("AUTHZ_ENABLED", false),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 10.0),
		RateBurst: getint("RATE_BURST", 20),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Scheduling: SchedulingConfig{
			BusinessStart:   getclock("BUSINESS_HOURS_START", 9*time.Hour),
			BusinessEnd:     getclock("BUSINESS_HOURS_END", 18*time.Hour),
			SlotStep:        getdur("SLOT_STEP", 30*time.Minute),
			MissionDuration: getdur("MISSION_DURATION", 60*time.Minute),
			TimeZone:        getenv("TIMEZONE", "UTC"),
			SlotCapacity:    getint("SLOT_CAPACITY", 0),
		},

		Notifications: NotificationConfig{
			ReminderLeadDays:  getint("EXIT_REMINDER_LEAD_DAYS", 10),
			OverdueGrace:      getdur("OVERDUE_GRACE", 2*time.Hour),
			RealertInterval:   getdur("OVERDUE_REALERT_INTERVAL", 24*time.Hour),
			Retention:         getdur("NOTIFICATION_RETENTION", 30*24*time.Hour),
			DeliveryTimeout:   getdur("DELIVERY_TIMEOUT", 10*time.Second),
			ClaimTTL:          getdur("CLAIM_TTL", 5*time.Minute),
			WorkerLimit:       getint("WORKER_LIMIT", 4),
			BatchSize:         getint("SWEEP_BATCH_SIZE", 500),
			OpsUserIDs:        splitCSV(getenv("OPS_USER_IDS", "")),
			IncidentSweepWait: getdur("INCIDENT_SWEEP_GRACE", 24*time.Hour),
		},

		Delivery: DeliveryConfig{
			Channel:      strings.ToLower(getenv("DELIVERY_CHANNEL", "log")),
			KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			KafkaTopic:   getenv("KAFKA_TOPIC", "mission-notifications"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "mission-scheduler"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	if err := cfg.Scheduling.resolve(); err != nil {
		return cfg, err
	}
	if err := cfg.Notifications.validate(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Delivery.validate()
}

func (c Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	switch {
	case strings.TrimSpace(c.Port) == "":
		return errors.New("PORT must not be empty")
	case c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0:
		return errors.New("timeouts must be positive durations")
	case c.MaxHeaderBytes <= 0:
		return errors.New("MAX_HEADER_BYTES must be > 0")
	case strings.TrimSpace(c.DBPath) == "":
		return errors.New("DB_PATH must not be empty")
	case c.RateRPS < 0:
		return errors.New("RATE_RPS must be >= 0")
	case c.RateBurst < 1:
		return errors.New("RATE_BURST must be >= 1")
	case c.Security.HSTSMaxAge < 0:
		return errors.New("HSTS_MAX_AGE must be >= 0")
	case c.IdempotencyTTL <= 0:
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	case c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1:
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// resolve checks the grid fits a business day and loads the time zone.
func (s *SchedulingConfig) resolve() error {
	switch {
	case s.BusinessStart < 0 || s.BusinessEnd <= s.BusinessStart:
		return errors.New("BUSINESS_HOURS_END must be after BUSINESS_HOURS_START")
	case s.SlotStep < time.Minute || s.MissionDuration < time.Minute:
		return errors.New("SLOT_STEP and MISSION_DURATION must be >= 1m")
	case s.BusinessStart+s.MissionDuration > s.BusinessEnd:
		return errors.New("business hours must fit at least one mission")
	case s.SlotCapacity < 0:
		return errors.New("SLOT_CAPACITY must be >= 0")
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return errors.New("TIMEZONE must be a valid IANA time zone")
	}
	s.Location = loc
	return nil
}

func (n NotificationConfig) validate() error {
	switch {
	case n.ReminderLeadDays < 0:
		return errors.New("EXIT_REMINDER_LEAD_DAYS must be >= 0")
	case n.OverdueGrace < 0 || n.RealertInterval <= 0 || n.Retention <= 0:
		return errors.New("OVERDUE_GRACE must be >= 0; OVERDUE_REALERT_INTERVAL and NOTIFICATION_RETENTION must be > 0")
	case n.DeliveryTimeout <= 0 || n.ClaimTTL <= 0:
		return errors.New("DELIVERY_TIMEOUT and CLAIM_TTL must be > 0")
	case n.WorkerLimit < 1 || n.BatchSize < 1:
		return errors.New("WORKER_LIMIT and SWEEP_BATCH_SIZE must be >= 1")
	case n.IncidentSweepWait < 0:
		return errors.New("INCIDENT_SWEEP_GRACE must be >= 0")
	}
	return nil
}

func (d DeliveryConfig) validate() error {
	switch d.Channel {
	case "log":
		return nil
	case "kafka":
		if len(d.KafkaBrokers) == 0 || strings.TrimSpace(d.KafkaTopic) == "" {
			return errors.New("KAFKA_BROKERS and KAFKA_TOPIC are required for DELIVERY_CHANNEL=kafka")
		}
		return nil
	default:
		return errors.New("DELIVERY_CHANNEL must be one of: log, kafka")
	}
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// getclock reads an "HH:MM" time of day as an offset from midnight.
func getclock(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if t, err := time.Parse("15:04", strings.TrimSpace(v)); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
