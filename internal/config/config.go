package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time parses durations for timeouts and intervals
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for costs and
// lifetimes, durations for timeouts.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    DBUser         string        // database username
    DBPass         string        // database password (optional)
    DBHost         string        // database host address
    DBPort         string        // database port number
    DBName         string        // database name
    BcryptCost     int           // bcrypt cost for password hashing
    SessionTTLDays int           // session token time-to-live in days
    SweepInterval  time.Duration // how often the in-process expiration sweep runs

    AgentPort           string        // TCP port the remote agents listen on
    AgentInstallTimeout time.Duration // budget for a full cluster install on an agent
    AgentOpTimeout      time.Duration // budget for start/stop/status agent calls
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Tunables with safe
// defaults (session TTL, sweep interval, agent port and timeouts) are
// optional.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),        // environment (dev/test/prod)
        Port:           must("APP_PORT"),       // port to bind the HTTP server
        DBUser:         must("DB_USER"),        // database user
        DBPass:         os.Getenv("DB_PASS"),   // database password (empty allowed)
        DBHost:         must("DB_HOST"),        // database host
        DBPort:         must("DB_PORT"),        // database port
        DBName:         must("DB_NAME"),        // database name
        BcryptCost:     mustInt("BCRYPT_COST"), // bcrypt cost factor
        SessionTTLDays: optInt("SESSION_TTL_DAYS", 30),
        SweepInterval:  optDur("SWEEP_INTERVAL", 5*time.Minute),

        AgentPort:           optStr("AGENT_PORT", "9000"),
        AgentInstallTimeout: optDur("AGENT_INSTALL_TIMEOUT", 120*time.Second),
        AgentOpTimeout:      optDur("AGENT_OP_TIMEOUT", 10*time.Second),
    }
}

// SecureCookies reports whether cookies should carry the Secure attribute.
// Only production traffic is guaranteed to ride TLS.
func (c Config) SecureCookies() bool { return c.Env == "prod" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

func optStr(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func optInt(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        return def
    }
    return n
}

func optDur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    d, err := time.ParseDuration(v)
    if err != nil {
        return def
    }
    return d
}
