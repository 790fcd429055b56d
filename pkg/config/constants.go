package config

const (
	EnvPrefix = "SCB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SCB_DB_DSN"
	EnvDBHost = "SCB_DB_HOST"
	EnvDBUser = "SCB_DB_USER"
	EnvDBName = "SCB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
