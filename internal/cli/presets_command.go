package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/promptcomposer/internal/presets"
	"github.com/temirov/promptcomposer/internal/types"
)

const (
	presetsUse              = "presets"
	presetsShortDescription = "manage saved template presets"
	presetsLongDescription  = `Presets store a named pair of file and prompt templates.
Refer to a preset by its name or id.`
	presetsListUse    = "list"
	presetsSaveUse    = "save <name>"
	presetsDeleteUse  = "delete <preset>"
	presetsRenameUse  = "rename <preset> <name>"
	presetsReorderUse = "reorder <preset...>"

	presetLineFormat       = "%s  %s\n"
	presetSavedFormat      = "Saved preset %s (%s)"
	presetDeletedFormat    = "Deleted preset %s"
	presetRenamedFormat    = "Renamed preset %s to %s"
	presetsReorderedFormat = "Reordered %d presets"
)

// createPresetsCommand returns the presets command group.
func createPresetsCommand(app *application) *cobra.Command {
	presetsCommand := &cobra.Command{
		Use:   presetsUse,
		Short: presetsShortDescription,
		Long:  presetsLongDescription,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	presetsCommand.AddCommand(
		createPresetsListCommand(app),
		createPresetsSaveCommand(app),
		createPresetsDeleteCommand(app),
		createPresetsRenameCommand(app),
		createPresetsReorderCommand(app),
	)
	return presetsCommand
}

func createPresetsListCommand(app *application) *cobra.Command {
	var outputFormat string
	listCommand := &cobra.Command{
		Use:  presetsListUse,
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			format := strings.ToLower(strings.TrimSpace(outputFormat))
			if format != "" && format != types.FormatRaw && format != types.FormatJSON {
				return fmt.Errorf(invalidFormatMessage, format)
			}
			store, storeErr := app.presetStore()
			if storeErr != nil {
				return storeErr
			}
			stored, listErr := store.List()
			if listErr != nil {
				return listErr
			}
			if format == types.FormatJSON {
				if stored == nil {
					stored = []presets.Preset{}
				}
				encoded, encodeErr := json.MarshalIndent(stored, "", "  ")
				if encodeErr != nil {
					return encodeErr
				}
				return app.deliver(command, string(encoded)+"\n", false)
			}
			var builder strings.Builder
			for _, preset := range stored {
				fmt.Fprintf(&builder, presetLineFormat, preset.ID, preset.Name)
			}
			return app.deliver(command, builder.String(), false)
		},
	}
	listCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatRaw, "output format (raw, json)")
	return listCommand
}

func createPresetsSaveCommand(app *application) *cobra.Command {
	var fileTemplate string
	var promptTemplate string
	saveCommand := &cobra.Command{
		Use:  presetsSaveUse,
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			resolvedFileTemplate, resolvedPromptTemplate, templateErr := app.resolveTemplates(templateOverrides{
				fileTemplate:   changedString(command, fileTemplateFlagName, fileTemplate),
				promptTemplate: changedString(command, promptTemplateFlagName, promptTemplate),
			})
			if templateErr != nil {
				return templateErr
			}
			store, storeErr := app.presetStore()
			if storeErr != nil {
				return storeErr
			}
			saved, saveErr := store.Save(arguments[0], resolvedFileTemplate, resolvedPromptTemplate)
			if saveErr != nil {
				return saveErr
			}
			printStatus(command.ErrOrStderr(), fmt.Sprintf(presetSavedFormat, saved.Name, saved.ID))
			return nil
		},
	}
	saveCommand.Flags().StringVar(&fileTemplate, fileTemplateFlagName, "", fileTemplateDescription)
	saveCommand.Flags().StringVar(&promptTemplate, promptTemplateFlagName, "", promptTemplateDesc)
	return saveCommand
}

func createPresetsDeleteCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:  presetsDeleteUse,
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			store, storeErr := app.presetStore()
			if storeErr != nil {
				return storeErr
			}
			if err := store.Delete(arguments[0]); err != nil {
				return err
			}
			printStatus(command.ErrOrStderr(), fmt.Sprintf(presetDeletedFormat, arguments[0]))
			return nil
		},
	}
}

func createPresetsRenameCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:  presetsRenameUse,
		Args: cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			store, storeErr := app.presetStore()
			if storeErr != nil {
				return storeErr
			}
			if err := store.Rename(arguments[0], arguments[1]); err != nil {
				return err
			}
			printStatus(command.ErrOrStderr(), fmt.Sprintf(presetRenamedFormat, arguments[0], arguments[1]))
			return nil
		},
	}
}

func createPresetsReorderCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:  presetsReorderUse,
		Args: cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			store, storeErr := app.presetStore()
			if storeErr != nil {
				return storeErr
			}
			if err := store.Reorder(arguments); err != nil {
				return err
			}
			printStatus(command.ErrOrStderr(), fmt.Sprintf(presetsReorderedFormat, len(arguments)))
			return nil
		},
	}
}
