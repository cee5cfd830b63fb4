// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/promptcomposer/internal/config"
	"github.com/temirov/promptcomposer/internal/services/clipboard"
	"github.com/temirov/promptcomposer/internal/types"
	"github.com/temirov/promptcomposer/internal/utils"
)

const (
	configFlagName       = "config"
	verboseFlagName      = "verbose"
	formatFlagName       = "format"
	copyFlagName         = "copy"
	rootFlagName         = "root"
	versionTemplate      = "promptcomposer version: {{.Version}}\n"
	rootUse              = "promptcomposer"
	rootShortDescription = "promptcomposer command line interface"
	rootLongDescription  = `promptcomposer lists project files through cascading .gitignore rules, measures them
and assembles LLM prompts from the files you select.
Use --format to select raw, json, or xml output where supported, and --config to point at an explicit configuration file.`
	configFlagDescription  = "path to a configuration file"
	verboseFlagDescription = "enable debug logging"
	formatFlagDescription  = "output format (raw, json, xml)"
	copyFlagDescription    = "copy the result to the clipboard"
	rootFlagDescription    = "base directory used for relative paths and the file tree"

	invalidFormatMessage        = "invalid format value '%s'"
	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	loadConfigurationFormat     = "load configuration: %w"
	copiedToClipboardMessage    = "Copied to clipboard"
)

// isSupportedFormat reports whether the provided format is recognized.
func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML:
		return true
	default:
		return false
	}
}

func normalizeFormat(format string) (string, error) {
	lowered := strings.ToLower(strings.TrimSpace(format))
	if lowered == "" {
		return types.FormatRaw, nil
	}
	if !isSupportedFormat(lowered) {
		return "", fmt.Errorf(invalidFormatMessage, lowered)
	}
	return lowered, nil
}

// dependencies are the process-level collaborators commands reach through.
type dependencies struct {
	copier clipboard.Copier
	now    func() time.Time
}

// application carries what every subcommand needs once the root command has run its pre-run hook.
type application struct {
	dependencies
	configuration    config.ApplicationConfiguration
	logger           *zap.Logger
	workingDirectory string
}

// Execute runs the promptcomposer application.
func Execute() error {
	return executeWithArguments(os.Args[1:], os.Stdout, os.Stderr, dependencies{
		copier: clipboard.NewService(),
		now:    time.Now,
	})
}

func executeWithArguments(arguments []string, stdout io.Writer, stderr io.Writer, deps dependencies) error {
	rootCommand, app := createRootCommand(deps)
	rootCommand.SetOut(stdout)
	rootCommand.SetErr(stderr)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, arguments))
	defer func() {
		if app.logger != nil {
			_ = app.logger.Sync()
		}
	}()
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand(deps dependencies) (*cobra.Command, *application) {
	if deps.now == nil {
		deps.now = time.Now
	}
	app := &application{dependencies: deps}
	var configurationPath string
	var verbose bool

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Version:       utils.GetApplicationVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return app.initialize(configurationPath, verbose)
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)
	rootCommand.PersistentFlags().StringVar(&configurationPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(rootCommand.PersistentFlags(), &verbose, verboseFlagName, false, verboseFlagDescription)
	rootCommand.AddCommand(
		createListCommand(app),
		createMetricsCommand(app),
		createTreeCommand(app),
		createPromptCommand(app),
		createFileCommand(app),
		createPresetsCommand(app),
		createServeCommand(app),
		createInitCommand(app),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand, app
}

func (app *application) initialize(configurationPath string, verbose bool) error {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}
	app.workingDirectory = workingDirectory

	logger, loggerError := utils.NewLeveledLogger(verbose)
	if loggerError != nil {
		return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerError)
	}
	app.logger = logger

	configuration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: configurationPath,
	})
	if configurationError != nil {
		return fmt.Errorf(loadConfigurationFormat, configurationError)
	}
	app.configuration = configuration
	app.logger.Debug("configuration loaded", zap.String("working_directory", workingDirectory))
	return nil
}

// deliver writes text to stdout and optionally copies it to the clipboard.
func (app *application) deliver(command *cobra.Command, text string, copyToClipboard bool) error {
	if _, err := fmt.Fprint(command.OutOrStdout(), text); err != nil {
		return err
	}
	if !copyToClipboard {
		return nil
	}
	if app.copier == nil {
		return clipboard.ErrUnsupported
	}
	if err := app.copier.Copy(text); err != nil {
		return err
	}
	printStatus(command.ErrOrStderr(), copiedToClipboardMessage)
	return nil
}
