package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time expresses the hold TTL as a duration

    "github.com/joho/godotenv" // godotenv loads a local .env file in development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for TTLs.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    DBUser         string        // database username
    DBPass         string        // database password (optional)
    DBHost         string        // database host address
    DBPort         string        // database port number
    DBName         string        // database name
    JWTSecret      string        // secret used to verify bearer tokens
    LockBackend    string        // lock store backend: "memory" or "redis"
    HoldTTL        time.Duration // soft-hold window for seat locks
    ReaperInterval time.Duration // sweep interval for the in-memory lock reaper
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present so local development does not need exported variables.
// Required variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
    _ = godotenv.Load() // absent .env is fine; real env always wins

    return Config{
        Env:            must("APP_ENV"),  // environment (dev/test/prod)
        Port:           must("APP_PORT"), // port to bind the HTTP server
        DBUser:         must("DB_USER"),  // database user
        DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:         must("DB_HOST"),  // database host
        DBPort:         must("DB_PORT"),  // database port
        DBName:         must("DB_NAME"),  // database name
        JWTSecret:      must("JWT_SECRET"),
        LockBackend:    defaulted("LOCK_BACKEND", "memory"),
        HoldTTL:        time.Duration(defaultedInt("LOCK_TTL_SECONDS", 600)) * time.Second,
        ReaperInterval: time.Duration(defaultedInt("LOCK_REAPER_INTERVAL_SECONDS", 60)) * time.Second,
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// defaulted retrieves an optional environment variable, falling back to
// def when unset or empty.
func defaulted(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// defaultedInt is like defaulted() but converts the value to an integer.
// An unparseable value is treated as a configuration error and exits.
func defaultedInt(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
