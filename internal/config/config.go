package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by SIPWELL_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("SIPWELL_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// NotifyURL is the toast surface endpoint. Empty means the
// notification channel is unconfigured.
func NotifyURL() string {
	return os.Getenv("SIPWELL_NOTIFY_URL")
}

// OverlayURL is the full-screen surface endpoint. Empty means the
// overlay channel is unconfigured.
func OverlayURL() string {
	return os.Getenv("SIPWELL_OVERLAY_URL")
}

// LaunchMode returns "interactive" or "background".
// Defaults to "interactive" if not set.
func LaunchMode() string {
	m := os.Getenv("SIPWELL_LAUNCH_MODE")
	if m != "background" {
		return "interactive"
	}
	return m
}

func durationEnv(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ResponseTimeout bounds how long a delivered reminder waits for a
// user response before it counts as ignored.
func ResponseTimeout() time.Duration {
	return durationEnv("SIPWELL_RESPONSE_TIMEOUT", 2*time.Minute)
}

// ActivityWindow is the trailing window of samples the interval engine
// looks at.
func ActivityWindow() time.Duration {
	return durationEnv("SIPWELL_ACTIVITY_WINDOW", 30*time.Minute)
}

// DispatchTimeout bounds a single channel dispatch attempt.
func DispatchTimeout() time.Duration {
	return durationEnv("SIPWELL_DISPATCH_TIMEOUT", 10*time.Second)
}

// PruneInterval is how often the retention maintenance job runs.
func PruneInterval() time.Duration {
	return durationEnv("SIPWELL_PRUNE_INTERVAL", 1*time.Hour)
}

// HighActivityThreshold is the activity density above which intervals
// shorten toward the minimum. Defaults to 0.6.
func HighActivityThreshold() float64 {
	v, err := strconv.ParseFloat(os.Getenv("SIPWELL_HIGH_ACTIVITY_THRESHOLD"), 64)
	if err != nil || v <= 0 || v > 1 {
		return 0.6
	}
	return v
}

// LowActivityThreshold is the activity density below which intervals
// lengthen toward the maximum. Defaults to 0.2.
func LowActivityThreshold() float64 {
	v, err := strconv.ParseFloat(os.Getenv("SIPWELL_LOW_ACTIVITY_THRESHOLD"), 64)
	if err != nil || v < 0 || v >= 1 {
		return 0.2
	}
	return v
}

// EscalateAfterIgnores is the consecutive-ignore count after which the
// normal disruption level escalates to the overlay. Defaults to 2.
func EscalateAfterIgnores() int {
	n, err := strconv.Atoi(os.Getenv("SIPWELL_ESCALATE_AFTER_IGNORES"))
	if err != nil || n <= 0 {
		return 2
	}
	return n
}

// RateLimitRPS returns requests per second limit.
// Defaults to 50 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 50
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}
