package config

const (
	EnvPrefix = "POS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "POS_DB_DSN"
	EnvDBHost = "POS_DB_HOST"
	EnvDBUser = "POS_DB_USER"
	EnvDBName = "POS_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
