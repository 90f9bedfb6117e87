package constants

// Application Information
const (
	AppName    = "Auth Service"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Default Application Settings
const (
	DefaultPort        = "8080"
	DefaultEnvironment = EnvDevelopment
)

// Redis Key Prefixes
const (
	RedisKeyPrefix    = "auth:"
	RedisKeyRateLimit = RedisKeyPrefix + "ratelimit:"
)

// Revocation reasons recorded on refresh-token ledger rows.
const (
	RevocationLogout         = "logout"
	RevocationSuperseded     = "superseded"
	RevocationReuseDetected  = "reuse-detected"
	RevocationPasswordReset  = "password-reset"
	RevocationPasswordChange = "password-change"
	RevocationTerminated     = "terminated"
)
