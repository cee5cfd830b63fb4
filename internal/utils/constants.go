package utils

// EmptyString represents a reusable empty string constant.
const EmptyString = ""

// ErrorLogFormat defines the formatting string for error log messages.
const ErrorLogFormat = "Error: %v"

const (
	// GlobalConfigDirectoryName is the directory under the user's home holding global configuration.
	GlobalConfigDirectoryName = ".promptcomposer"
	// ConfigFileName is the name of the configuration file in both locations.
	ConfigFileName = "config.yaml"
	// PresetsFileName is the name of the preset store inside the global configuration directory.
	PresetsFileName = "presets.yaml"
	// EnvironmentFileName is the dotenv file loaded at startup.
	EnvironmentFileName = ".env"
	// EnvironmentPrefix prefixes every environment variable override.
	EnvironmentPrefix = "PROMPTCOMPOSER_"

	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal command failures.
	ApplicationExecutionFailedMessage = "application execution failed"
)
