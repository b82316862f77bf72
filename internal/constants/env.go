// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvDBHost is the environment variable for the database host
	EnvDBHost = "DBPILOT_DB_HOST"
	// EnvDBPort is the environment variable for the database port
	EnvDBPort = "DBPILOT_DB_PORT"
	// EnvDBUser is the environment variable for the database user
	EnvDBUser = "DBPILOT_DB_USER"
	// EnvDBPassword is the environment variable for the database password
	EnvDBPassword = "DBPILOT_DB_PASSWORD"
	// EnvDBName is the environment variable for the database name
	EnvDBName = "DBPILOT_DB_NAME"

	// EnvAPIPort is the environment variable for the API listen port
	EnvAPIPort = "DBPILOT_API_PORT"

	// EnvKubeconfig is the environment variable pointing at a kubeconfig file.
	// When unset the in-cluster configuration is attempted.
	EnvKubeconfig = "KUBECONFIG"

	// EnvNamespacePrefix is the environment variable for the per-project
	// namespace name prefix
	EnvNamespacePrefix = "DBPILOT_NAMESPACE_PREFIX"

	// EnvBackupVolumeClaim is the environment variable naming the PVC that
	// backup and restore jobs mount
	EnvBackupVolumeClaim = "DBPILOT_BACKUP_PVC"

	// EnvJobPollInterval is the environment variable for the job processor
	// tick interval
	EnvJobPollInterval = "DBPILOT_JOB_POLL_INTERVAL"

	// EnvJobBatchSize is the environment variable for the number of pending
	// jobs claimed per tick
	EnvJobBatchSize = "DBPILOT_JOB_BATCH_SIZE"

	// EnvNotifyWebhookURL is the environment variable for the notification
	// webhook endpoint
	EnvNotifyWebhookURL = "DBPILOT_NOTIFY_WEBHOOK_URL"

	// EnvSimulatedDelay is the environment variable for the artificial delay
	// applied to simulated orchestration calls
	EnvSimulatedDelay = "DBPILOT_SIMULATED_DELAY"
)
