package httpapi

// readingTimeout caps how long a single reading may run before timing out.
// Zero means no additional timeout beyond server/connection timeouts.
var readingTimeout = int64(0) // seconds

// SetReadingTimeoutSeconds sets the per-request generation timeout (0 disables).
func SetReadingTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	readingTimeout = sec
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
