package config

// LogConfig selects the log level and output format for the process logger.
type LogConfig struct {
    Level  string // logrus level name: debug, info, warn, error
    Format string // json | text
}

// LoadLogConfig reads LOG_LEVEL and LOG_FORMAT.  Production defaults to JSON.
func LoadLogConfig() LogConfig {
    def := "text"
    if envStr("APP_ENV", "dev") == "prod" {
        def = "json"
    }
    return LogConfig{
        Level:  envStr("LOG_LEVEL", "info"),
        Format: envStr("LOG_FORMAT", def),
    }
}
