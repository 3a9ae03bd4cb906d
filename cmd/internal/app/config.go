package app

import "time"

// Service selects which of the two campus services a process runs.
type Service string

const (
	// ServiceUsers is the identity service: registration, login, user
	// management, analytics.
	ServiceUsers Service = "users"

	// ServiceCourses is the catalog service: course CRUD, enrollment, the
	// reconciliation sweep.
	ServiceCourses Service = "courses"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	Service Service

	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// DatabaseURL empty selects the in-memory stores (development mode).
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// MigrateOnStart applies the embedded schema migrations before serving.
	MigrateOnStart bool

	// If true, /readyz returns 503 unless the database is configured and
	// reachable.
	ReadinessRequireDB bool

	// LoginAttemptsPerMinute throttles the login endpoints per client IP.
	LoginAttemptsPerMinute float64
}

// LoadConfig loads Config from environment variables with defaults. The
// default port differs per service so both can run on one host.
func LoadConfig(svc Service) Config {
	defAddr := "0.0.0.0:3000"
	if svc == ServiceCourses {
		defAddr = "0.0.0.0:3001"
	}

	return Config{
		Service: svc,

		HTTPAddr: EnvString("CAMPUS_HTTP_ADDR", defAddr),
		LogLevel: EnvString("CAMPUS_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("CAMPUS_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("CAMPUS_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("CAMPUS_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("CAMPUS_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("CAMPUS_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("CAMPUS_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("CAMPUS_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("CAMPUS_DB_MIN_CONNS", 0),

		MigrateOnStart: EnvBool("CAMPUS_DB_MIGRATE", true),

		ReadinessRequireDB: EnvBool("CAMPUS_READINESS_REQUIRE_DB", false),

		LoginAttemptsPerMinute: EnvFloat64("CAMPUS_LOGIN_ATTEMPTS_PER_MINUTE", 10),
	}
}
