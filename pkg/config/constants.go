package config

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "LIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// CallbackPath is where FedaPay delivers settlement callbacks.
const CallbackPath = "/api/fedapay/callback"

const (
	EnvDBDSN  = "LIA_DB_DSN"
	EnvDBHost = "LIA_DB_HOST"
	EnvDBUser = "LIA_DB_USER"
	EnvDBName = "LIA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
