package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/temirov/promptcomposer/internal/filetree"
	"github.com/temirov/promptcomposer/internal/output"
	"github.com/temirov/promptcomposer/internal/presets"
	"github.com/temirov/promptcomposer/internal/prompt"
	"github.com/temirov/promptcomposer/internal/services/server"
	"github.com/temirov/promptcomposer/internal/templating"
	"github.com/temirov/promptcomposer/internal/types"
)

const (
	operationListChildren   = "list_children"
	operationListTree       = "list_tree"
	operationComputeMetrics = "compute_metrics"
	operationRenderFile     = "render_file"
	operationRenderTree     = "render_tree"
	operationAssemblePrompt = "assemble_prompt"
	operationGeneratePrompt = "generate_prompt"

	errorDirectoryRequired = "directory is required"
	errorPathsRequired     = "paths are required"
	metricsFailureFormat   = "%s: %v"
)

type listRequest struct {
	Directory string `json:"directory"`
	MaxDepth  *int   `json:"max_depth"`
}

type metricsRequest struct {
	Paths   []string `json:"paths"`
	Model   string   `json:"model"`
	Workers int      `json:"workers"`
}

type renderFileRequest struct {
	Template     *string `json:"template"`
	Policy       string  `json:"policy"`
	FileName     string  `json:"file_name"`
	RelativePath string  `json:"relative_path"`
	Content      string  `json:"content"`
}

type renderTreeRequest struct {
	Root  string                `json:"root"`
	Files []types.FileSelection `json:"files"`
}

type assemblePromptRequest struct {
	Template *string `json:"template"`
	Tree     string  `json:"tree"`
	Files    string  `json:"files"`
}

type generatePromptRequest struct {
	Root           string                `json:"root"`
	Files          []types.FileSelection `json:"files"`
	Preset         string                `json:"preset"`
	FileTemplate   *string               `json:"file_template"`
	PromptTemplate *string               `json:"prompt_template"`
}

func operationCapabilities() []server.Capability {
	return []server.Capability{
		{Name: operationListChildren, Description: "List the visible children of a directory"},
		{Name: operationListTree, Description: "List a directory recursively up to a depth limit"},
		{Name: operationComputeMetrics, Description: "Measure size, lines and tokens for files"},
		{Name: operationRenderFile, Description: "Expand a file template for one file"},
		{Name: operationRenderTree, Description: "Draw selected files as a tree"},
		{Name: operationAssemblePrompt, Description: "Substitute a tree and file blocks into a prompt template"},
		{Name: operationGeneratePrompt, Description: "Read files and assemble the complete prompt"},
	}
}

func (app *application) operationExecutors() map[string]server.OperationExecutor {
	return map[string]server.OperationExecutor{
		operationListChildren:   server.OperationExecutorFunc(app.executeListChildren),
		operationListTree:       server.OperationExecutorFunc(app.executeListTree),
		operationComputeMetrics: server.OperationExecutorFunc(app.executeComputeMetrics),
		operationRenderFile:     server.OperationExecutorFunc(app.executeRenderFile),
		operationRenderTree:     server.OperationExecutorFunc(app.executeRenderTree),
		operationAssemblePrompt: server.OperationExecutorFunc(app.executeAssemblePrompt),
		operationGeneratePrompt: server.OperationExecutorFunc(app.executeGeneratePrompt),
	}
}

func (app *application) executeListChildren(_ context.Context, request server.OperationRequest) (server.OperationResponse, error) {
	return app.executeListing(request, false)
}

func (app *application) executeListTree(_ context.Context, request server.OperationRequest) (server.OperationResponse, error) {
	return app.executeListing(request, true)
}

func (app *application) executeListing(request server.OperationRequest, recursive bool) (server.OperationResponse, error) {
	var payload listRequest
	if err := request.Decode(&payload); err != nil {
		return server.OperationResponse{}, err
	}
	if strings.TrimSpace(payload.Directory) == "" {
		return server.OperationResponse{}, server.NewOperationError(http.StatusBadRequest, errors.New(errorDirectoryRequired))
	}
	lister, listerErr := app.newLister(payload.MaxDepth)
	if listerErr != nil {
		return server.OperationResponse{}, server.NewOperationError(http.StatusBadRequest, listerErr)
	}
	var entries []types.PathEntry
	var listErr error
	if recursive {
		entries, listErr = lister.ListTree(payload.Directory)
	} else {
		entries, listErr = lister.ListChildren(payload.Directory)
	}
	if listErr != nil {
		return server.OperationResponse{}, server.NewOperationError(http.StatusBadRequest, listErr)
	}
	if entries == nil {
		entries = []types.PathEntry{}
	}
	return server.OperationResponse{Result: entries}, nil
}

func (app *application) executeComputeMetrics(ctx context.Context, request server.OperationRequest) (server.OperationResponse, error) {
	var payload metricsRequest
	if err := request.Decode(&payload); err != nil {
		return server.OperationResponse{}, err
	}
	if len(payload.Paths) == 0 {
		return server.OperationResponse{}, server.NewOperationError(http.StatusBadRequest, errors.New(errorPathsRequired))
	}
	collector, _, collectorErr := app.newCollector(metricsOverrides{model: payload.Model, workers: payload.Workers})
	if collectorErr != nil {
		return server.OperationResponse{}, collectorErr
	}
	batch, collectErr := collector.Collect(ctx, payload.Paths)
	response := server.OperationResponse{Result: output.NewMetricsReport(batch)}
	for _, failure := range batch.Failures {
		response.Warnings = append(response.Warnings, fmt.Sprintf(metricsFailureFormat, failure.Path, failure.Err))
	}
	if collectErr != nil {
		return response, server.NewOperationError(http.StatusUnprocessableEntity, collectErr)
	}
	return response, nil
}

func (app *application) executeRenderFile(_ context.Context, request server.OperationRequest) (server.OperationResponse, error) {
	var payload renderFileRequest
	if err := request.Decode(&payload); err != nil {
		return server.OperationResponse{}, err
	}
	fileTemplate, _, templateErr := app.resolveTemplates(templateOverrides{fileTemplate: payload.Template})
	if templateErr != nil {
		return server.OperationResponse{}, presetError(templateErr)
	}
	policy, policyErr := app.substitutionPolicy()
	if strings.TrimSpace(payload.Policy) != "" {
		policy, policyErr = templating.ParsePolicy(payload.Policy)
	}
	if policyErr != nil {
		return server.OperationResponse{}, server.NewOperationError(http.StatusBadRequest, policyErr)
	}
	rendered := templating.RenderFile(fileTemplate, templating.FileBlock{
		Name:         payload.FileName,
		RelativePath: payload.RelativePath,
		Content:      payload.Content,
	}, policy)
	return server.OperationResponse{Result: rendered}, nil
}

func (app *application) executeRenderTree(_ context.Context, request server.OperationRequest) (server.OperationResponse, error) {
	var payload renderTreeRequest
	if err := request.Decode(&payload); err != nil {
		return server.OperationResponse{}, err
	}
	rendered, renderErr := filetree.Render(payload.Root, payload.Files)
	if renderErr != nil {
		return server.OperationResponse{}, server.NewOperationError(http.StatusBadRequest, renderErr)
	}
	return server.OperationResponse{Result: rendered}, nil
}

func (app *application) executeAssemblePrompt(_ context.Context, request server.OperationRequest) (server.OperationResponse, error) {
	var payload assemblePromptRequest
	if err := request.Decode(&payload); err != nil {
		return server.OperationResponse{}, err
	}
	_, promptTemplate, templateErr := app.resolveTemplates(templateOverrides{promptTemplate: payload.Template})
	if templateErr != nil {
		return server.OperationResponse{}, presetError(templateErr)
	}
	return server.OperationResponse{Result: templating.AssemblePrompt(promptTemplate, payload.Tree, payload.Files)}, nil
}

func (app *application) executeGeneratePrompt(_ context.Context, request server.OperationRequest) (server.OperationResponse, error) {
	var payload generatePromptRequest
	if err := request.Decode(&payload); err != nil {
		return server.OperationResponse{}, err
	}
	fileTemplate, promptTemplate, templateErr := app.resolveTemplates(templateOverrides{
		preset:         payload.Preset,
		fileTemplate:   payload.FileTemplate,
		promptTemplate: payload.PromptTemplate,
	})
	if templateErr != nil {
		return server.OperationResponse{}, presetError(templateErr)
	}
	files, expandErr := app.expandDirectories(payload.Files)
	if expandErr != nil {
		return server.OperationResponse{}, server.NewOperationError(http.StatusBadRequest, expandErr)
	}
	composer, composerErr := app.newComposer()
	if composerErr != nil {
		return server.OperationResponse{}, composerErr
	}
	generated, generateErr := composer.Generate(prompt.Request{
		Root:           payload.Root,
		Files:          files,
		FileTemplate:   fileTemplate,
		PromptTemplate: promptTemplate,
	})
	if generateErr != nil {
		return server.OperationResponse{}, server.NewOperationError(http.StatusBadRequest, generateErr)
	}
	return server.OperationResponse{Result: generated}, nil
}

// presetError maps an unknown preset to 404 and leaves other failures as internal errors.
func presetError(err error) error {
	if errors.Is(err, presets.ErrPresetNotFound) {
		return server.NewOperationError(http.StatusNotFound, err)
	}
	return err
}
