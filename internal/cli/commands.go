package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/promptcomposer/internal/config"
	"github.com/temirov/promptcomposer/internal/filetree"
	"github.com/temirov/promptcomposer/internal/output"
	"github.com/temirov/promptcomposer/internal/prompt"
	"github.com/temirov/promptcomposer/internal/services/server"
	"github.com/temirov/promptcomposer/internal/types"
)

const (
	defaultPath          = "."
	defaultServerAddress = "127.0.0.1:7411"

	listUse              = "list [directory]"
	listAlias            = "ls"
	listShortDescription = "list directory entries (" + listAlias + ")"
	listLongDescription  = `List the entries of a directory, hiding everything matched by .gitignore files
found in the directory and its ancestors. Directories are listed first.
Use --recursive to descend into subdirectories up to --depth levels.`
	listUsageExample = `  # List the current directory
  promptcomposer list

  # Render the whole project tree as JSON
  promptcomposer ls --recursive --format json ./project`

	metricsUse              = "metrics <files...>"
	metricsAlias            = "m"
	metricsShortDescription = "measure files (" + metricsAlias + ")"
	metricsLongDescription  = `Measure size, line count and token count for every file concurrently.
Files that are not valid UTF-8 are reported with zero counts.`
	metricsUsageExample = `  # Count tokens with the gpt-4 tokenizer
  promptcomposer metrics --model gpt-4 main.go README.md`

	treeUse              = "tree <paths...>"
	treeShortDescription = "draw the selected files as a tree"
	treeUsageExample     = `  # Draw the selection relative to the project root
  promptcomposer tree --root . cmd/main.go internal/app/app.go`

	promptUse              = "prompt <paths...>"
	promptAlias            = "p"
	promptShortDescription = "assemble a prompt from files (" + promptAlias + ")"
	promptLongDescription  = `Render every selected file through the file template, then substitute the
concatenated blocks and the selection tree into the prompt template.
A directory selects every file beneath it that recursive listing would show.
Templates come from flags, then the named preset, then configuration.`
	promptUsageExample = `  # Build a prompt and copy it to the clipboard
  promptcomposer prompt --root . --copy main.go go.mod

  # Use a saved preset and keep a copy on disk
  promptcomposer p --preset review --save-dir prompts main.go

  # Select a whole package
  promptcomposer prompt --root . internal/listing`

	fileUse              = "file <file>"
	fileShortDescription = "render one file through the file template"

	serveUse              = "serve"
	serveShortDescription = "serve composer operations over HTTP"
	serveLongDescription  = `Expose listing, metrics, tree rendering and prompt assembly as JSON operations.
GET /capabilities lists operations; POST /operations/<name> runs one.`

	initUse              = "init"
	initShortDescription = "write a default configuration file"

	recursiveFlagName        = "recursive"
	recursiveFlagDescription = "list subdirectories recursively"
	depthFlagName            = "depth"
	depthFlagDescription     = "maximum recursion depth (0 for unlimited)"
	modelFlagName            = "model"
	modelFlagDescription     = "tokenizer model to use for token counting"
	workersFlagName          = "workers"
	workersFlagDescription   = "maximum concurrent file measurements (0 for CPU count)"
	fileTemplateFlagName     = "file-template"
	fileTemplateDescription  = "template applied to each file"
	promptTemplateFlagName   = "prompt-template"
	promptTemplateDesc       = "template for the whole prompt"
	presetFlagName           = "preset"
	presetFlagDescription    = "preset name or id supplying templates"
	saveDirectoryFlagName    = "save-dir"
	saveDirectoryDescription = "directory receiving a timestamped copy of the prompt"
	addressFlagName          = "address"
	addressFlagDescription   = "listen address"
	globalFlagName           = "global"
	globalFlagDescription    = "write to the global configuration directory"
	forceFlagName            = "force"
	forceFlagDescription     = "overwrite an existing configuration file"

	errorUnrenderableFileFormat = "file '%s' is not readable UTF-8 text"
	savedPromptMessageFormat    = "Saved prompt to %s"
	servingMessageFormat        = "Serving operations on http://%s"
	configurationWrittenFormat  = "Configuration written to %s"
	metricsFailureWarningFormat = "Warning: %d file(s) could not be measured"
)

// createListCommand returns the list subcommand.
func createListCommand(app *application) *cobra.Command {
	var recursive bool
	var depth int
	var outputFormat string

	listCommand := &cobra.Command{
		Use:     listUse,
		Aliases: []string{listAlias},
		Short:   listShortDescription,
		Long:    listLongDescription,
		Example: listUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			target := defaultPath
			if len(arguments) == 1 {
				target = arguments[0]
			}
			format, formatErr := normalizeFormat(firstNonEmpty(outputFormat, app.configuration.Listing.Format))
			if formatErr != nil {
				return formatErr
			}
			directory, directoryErr := resolveDirectory(target)
			if directoryErr != nil {
				return directoryErr
			}
			var depthOverride *int
			if command.Flags().Changed(depthFlagName) {
				depthOverride = &depth
			}
			lister, listerErr := app.newLister(depthOverride)
			if listerErr != nil {
				return listerErr
			}
			var entries []types.PathEntry
			var listErr error
			if recursive {
				entries, listErr = lister.ListTree(directory)
			} else {
				entries, listErr = lister.ListChildren(directory)
			}
			if listErr != nil {
				return listErr
			}
			rendered, renderErr := output.RenderListing(format, entries)
			if renderErr != nil {
				return renderErr
			}
			return app.deliver(command, withTrailingNewline(rendered), false)
		},
	}
	registerBooleanFlag(listCommand.Flags(), &recursive, recursiveFlagName, false, recursiveFlagDescription)
	listCommand.Flags().IntVar(&depth, depthFlagName, 0, depthFlagDescription)
	listCommand.Flags().StringVar(&outputFormat, formatFlagName, "", formatFlagDescription)
	return listCommand
}

// createMetricsCommand returns the metrics subcommand.
func createMetricsCommand(app *application) *cobra.Command {
	var outputFormat string
	var overrides metricsOverrides

	metricsCommand := &cobra.Command{
		Use:     metricsUse,
		Aliases: []string{metricsAlias},
		Short:   metricsShortDescription,
		Long:    metricsLongDescription,
		Example: metricsUsageExample,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			format, formatErr := normalizeFormat(firstNonEmpty(outputFormat, app.configuration.Metrics.Format))
			if formatErr != nil {
				return formatErr
			}
			collector, tokenizerName, collectorErr := app.newCollector(overrides)
			if collectorErr != nil {
				return collectorErr
			}
			app.logger.Debug("tokenizer selected", zap.String("tokenizer", tokenizerName))
			paths := make([]string, 0, len(arguments))
			for _, argument := range arguments {
				paths = append(paths, absoluteOrSelf(argument))
			}
			batch, collectErr := collector.Collect(command.Context(), paths)
			rendered, renderErr := output.RenderMetrics(format, batch)
			if renderErr != nil {
				return renderErr
			}
			if deliverErr := app.deliver(command, withTrailingNewline(rendered), false); deliverErr != nil {
				return deliverErr
			}
			if collectErr != nil {
				printWarning(command.ErrOrStderr(), fmt.Sprintf(metricsFailureWarningFormat, len(batch.Failures)))
			}
			return collectErr
		},
	}
	metricsCommand.Flags().StringVar(&outputFormat, formatFlagName, "", formatFlagDescription)
	metricsCommand.Flags().StringVar(&overrides.model, modelFlagName, "", modelFlagDescription)
	metricsCommand.Flags().IntVar(&overrides.workers, workersFlagName, 0, workersFlagDescription)
	return metricsCommand
}

// createTreeCommand returns the tree subcommand.
func createTreeCommand(app *application) *cobra.Command {
	var root string
	var copyToClipboard bool

	treeCommand := &cobra.Command{
		Use:     treeUse,
		Short:   treeShortDescription,
		Example: treeUsageExample,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			selections, selectionErr := app.resolveSelections(arguments)
			if selectionErr != nil {
				return selectionErr
			}
			rendered, renderErr := filetree.Render(root, selections)
			if renderErr != nil {
				return renderErr
			}
			return app.deliver(command, rendered, copyToClipboard)
		},
	}
	treeCommand.Flags().StringVar(&root, rootFlagName, defaultPath, rootFlagDescription)
	registerBooleanFlag(treeCommand.Flags(), &copyToClipboard, copyFlagName, false, copyFlagDescription)
	return treeCommand
}

// createPromptCommand returns the prompt subcommand.
func createPromptCommand(app *application) *cobra.Command {
	var root string
	var fileTemplate string
	var promptTemplate string
	var presetReference string
	var copyToClipboard bool
	var saveDirectory string

	promptCommand := &cobra.Command{
		Use:     promptUse,
		Aliases: []string{promptAlias},
		Short:   promptShortDescription,
		Long:    promptLongDescription,
		Example: promptUsageExample,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			selections, selectionErr := app.resolveSelections(arguments)
			if selectionErr != nil {
				return selectionErr
			}
			resolvedFileTemplate, resolvedPromptTemplate, templateErr := app.resolveTemplates(templateOverrides{
				preset:         presetReference,
				fileTemplate:   changedString(command, fileTemplateFlagName, fileTemplate),
				promptTemplate: changedString(command, promptTemplateFlagName, promptTemplate),
			})
			if templateErr != nil {
				return templateErr
			}
			composer, composerErr := app.newComposer()
			if composerErr != nil {
				return composerErr
			}
			generated, generateErr := composer.Generate(prompt.Request{
				Root:           root,
				Files:          selections,
				FileTemplate:   resolvedFileTemplate,
				PromptTemplate: resolvedPromptTemplate,
			})
			if generateErr != nil {
				return generateErr
			}
			shouldCopy := copyToClipboard
			if !command.Flags().Changed(copyFlagName) {
				shouldCopy = derefBool(app.configuration.Prompt.Clipboard, false)
			}
			if deliverErr := app.deliver(command, generated, shouldCopy); deliverErr != nil {
				return deliverErr
			}
			destination := firstNonEmpty(saveDirectory, app.configuration.Prompt.SaveDirectory)
			if destination == "" {
				return nil
			}
			savedPath, saveErr := prompt.WritePromptFile(destination, generated, app.now())
			if saveErr != nil {
				return saveErr
			}
			printStatus(command.ErrOrStderr(), fmt.Sprintf(savedPromptMessageFormat, savedPath))
			return nil
		},
	}
	promptCommand.Flags().StringVar(&root, rootFlagName, defaultPath, rootFlagDescription)
	promptCommand.Flags().StringVar(&fileTemplate, fileTemplateFlagName, "", fileTemplateDescription)
	promptCommand.Flags().StringVar(&promptTemplate, promptTemplateFlagName, "", promptTemplateDesc)
	promptCommand.Flags().StringVar(&presetReference, presetFlagName, "", presetFlagDescription)
	promptCommand.Flags().StringVar(&saveDirectory, saveDirectoryFlagName, "", saveDirectoryDescription)
	registerBooleanFlag(promptCommand.Flags(), &copyToClipboard, copyFlagName, false, copyFlagDescription)
	return promptCommand
}

// createFileCommand returns the file subcommand.
func createFileCommand(app *application) *cobra.Command {
	var root string
	var fileTemplate string
	var presetReference string
	var copyToClipboard bool

	fileCommand := &cobra.Command{
		Use:   fileUse,
		Short: fileShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			selections, selectionErr := resolveFileSelections(arguments)
			if selectionErr != nil {
				return selectionErr
			}
			resolvedFileTemplate, _, templateErr := app.resolveTemplates(templateOverrides{
				preset:       presetReference,
				fileTemplate: changedString(command, fileTemplateFlagName, fileTemplate),
			})
			if templateErr != nil {
				return templateErr
			}
			composer, composerErr := app.newComposer()
			if composerErr != nil {
				return composerErr
			}
			block, renderable := composer.RenderSingle(root, selections[0], resolvedFileTemplate)
			if !renderable {
				return fmt.Errorf(errorUnrenderableFileFormat, arguments[0])
			}
			return app.deliver(command, block, copyToClipboard)
		},
	}
	fileCommand.Flags().StringVar(&root, rootFlagName, defaultPath, rootFlagDescription)
	fileCommand.Flags().StringVar(&fileTemplate, fileTemplateFlagName, "", fileTemplateDescription)
	fileCommand.Flags().StringVar(&presetReference, presetFlagName, "", presetFlagDescription)
	registerBooleanFlag(fileCommand.Flags(), &copyToClipboard, copyFlagName, false, copyFlagDescription)
	return fileCommand
}

// createServeCommand returns the serve subcommand.
func createServeCommand(app *application) *cobra.Command {
	var address string

	serveCommand := &cobra.Command{
		Use:   serveUse,
		Short: serveShortDescription,
		Long:  serveLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			listenAddress := firstNonEmpty(address, app.configuration.Server.Address, defaultServerAddress)
			baseContext := command.Context()
			if baseContext == nil {
				baseContext = context.Background()
			}
			signalContext, stop := signal.NotifyContext(baseContext, os.Interrupt, syscall.SIGTERM)
			defer stop()

			operationServer := server.NewServer(server.Config{
				Address:      listenAddress,
				Capabilities: operationCapabilities(),
				Executors:    app.operationExecutors(),
				Logger:       app.logger,
			})
			return operationServer.Run(signalContext, func(boundAddress string) {
				printStatus(command.ErrOrStderr(), fmt.Sprintf(servingMessageFormat, boundAddress))
			})
		},
	}
	serveCommand.Flags().StringVar(&address, addressFlagName, "", addressFlagDescription)
	return serveCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand(app *application) *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, initErr := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: app.workingDirectory,
			})
			if initErr != nil {
				if errors.Is(initErr, config.ErrConfigurationExists) {
					return fmt.Errorf("%w; use --%s to overwrite", initErr, forceFlagName)
				}
				return initErr
			}
			printStatus(command.ErrOrStderr(), fmt.Sprintf(configurationWrittenFormat, path))
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

func changedString(command *cobra.Command, name string, value string) *string {
	if !command.Flags().Changed(name) {
		return nil
	}
	copied := value
	return &copied
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func withTrailingNewline(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}
