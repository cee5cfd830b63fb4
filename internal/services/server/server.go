// Package server exposes composer operations as JSON over HTTP for non-CLI callers.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListenAddress    = "127.0.0.1:0"
	defaultShutdownDuration = 5 * time.Second
	headerContentType       = "Content-Type"
	mimeTypeJSON            = "application/json"
	capabilitiesPath        = "/capabilities"
	rootPath                = "/"
	operationsPrefix        = "/operations/"
	errorFieldName          = "error"
	errorOperationNotFound  = "operation not found"

	logOperationFailed = "operation failed"
)

// Capability describes an operation exposed by the server.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// OperationRequest holds the raw JSON payload supplied by a client.
type OperationRequest struct {
	Payload json.RawMessage
}

// Decode unmarshals the payload into target. Malformed payloads yield a 400 OperationError.
func (request OperationRequest) Decode(target interface{}) error {
	payload := bytes.TrimSpace(request.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return NewOperationError(http.StatusBadRequest, fmt.Errorf("decode payload: %w", err))
	}
	return nil
}

// OperationResponse carries the result of an operation.
type OperationResponse struct {
	Result   interface{} `json:"result"`
	Warnings []string    `json:"warnings,omitempty"`
}

// operationFailure is written for failed operations. A partial result is kept when the executor returned one.
type operationFailure struct {
	Error    string      `json:"error"`
	Result   interface{} `json:"result,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// OperationExecutor runs one named operation.
type OperationExecutor interface {
	Execute(ctx context.Context, request OperationRequest) (OperationResponse, error)
}

// OperationExecutorFunc adapts a function into an OperationExecutor.
type OperationExecutorFunc func(context.Context, OperationRequest) (OperationResponse, error)

// Execute invokes the underlying function.
func (executor OperationExecutorFunc) Execute(ctx context.Context, request OperationRequest) (OperationResponse, error) {
	return executor(ctx, request)
}

// OperationError is a failure accompanied by an HTTP status code.
type OperationError struct {
	statusCode int
	err        error
}

// Error returns the error string.
func (operationError OperationError) Error() string {
	return operationError.err.Error()
}

// Unwrap exposes the wrapped error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// StatusCode reports the associated HTTP status code.
func (operationError OperationError) StatusCode() int {
	return operationError.statusCode
}

// NewOperationError creates an OperationError. A nil err yields nil.
func NewOperationError(statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{statusCode: statusCode, err: err}
}

// Config defines runtime options for the server.
type Config struct {
	Address         string
	Capabilities    []Capability
	Executors       map[string]OperationExecutor
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Server serves capability metadata and executes operations over HTTP.
type Server struct {
	config Config
}

// NewServer creates a Server with defaults applied.
func NewServer(config Config) Server {
	normalized := config
	if normalized.Address == "" {
		normalized.Address = defaultListenAddress
	}
	if normalized.ShutdownTimeout <= 0 {
		normalized.ShutdownTimeout = defaultShutdownDuration
	}
	if normalized.Capabilities == nil {
		normalized.Capabilities = []Capability{}
	}
	if normalized.Executors == nil {
		normalized.Executors = map[string]OperationExecutor{}
	}
	if normalized.Logger == nil {
		normalized.Logger = zap.NewNop()
	}
	return Server{config: normalized}
}

// Handler returns the HTTP routes served by Run.
func (server Server) Handler() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc(capabilitiesPath, server.handleCapabilities)
	router.HandleFunc(rootPath, server.handleRoot)
	router.HandleFunc(operationsPrefix, server.handleOperation)
	return router
}

// Run starts the server and blocks until ctx is canceled.
// The notify callback receives the bound address once the listener is active.
func (server Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenErr := net.Listen("tcp", server.config.Address)
	if listenErr != nil {
		return fmt.Errorf("listen on %s: %w", server.config.Address, listenErr)
	}
	actualAddress := listener.Addr().String()

	httpServer := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: 10 * time.Second}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		serveErr := httpServer.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve operations: %w", serveErr)
		}
		return nil
	})

	if notify != nil {
		notify(actualAddress)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancel()
		shutdownErr := httpServer.Shutdown(shutdownCtx)
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) && !errors.Is(shutdownErr, http.ErrServerClosed) {
			return fmt.Errorf("shutdown server: %w", shutdownErr)
		}
		return nil
	})

	return group.Wait()
}

func (server Server) handleCapabilities(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	payload := struct {
		Capabilities []Capability `json:"capabilities"`
	}{Capabilities: server.config.Capabilities}
	server.writeJSON(writer, http.StatusOK, payload)
}

func (server Server) handleRoot(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if request.URL.Path != rootPath {
		server.writeJSON(writer, http.StatusNotFound, map[string]string{errorFieldName: errorOperationNotFound})
		return
	}
	writer.WriteHeader(http.StatusOK)
}

func (server Server) handleOperation(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	operationName := strings.TrimPrefix(request.URL.Path, operationsPrefix)
	if operationName == "" || strings.Contains(operationName, "/") {
		server.writeJSON(writer, http.StatusNotFound, map[string]string{errorFieldName: errorOperationNotFound})
		return
	}
	executor, found := server.config.Executors[operationName]
	if !found {
		server.writeJSON(writer, http.StatusNotFound, map[string]string{errorFieldName: errorOperationNotFound})
		return
	}
	body, readErr := io.ReadAll(request.Body)
	if readErr != nil {
		server.writeJSON(writer, http.StatusBadRequest, map[string]string{errorFieldName: fmt.Sprintf("read request body: %v", readErr)})
		return
	}
	response, executeErr := executor.Execute(request.Context(), OperationRequest{Payload: json.RawMessage(body)})
	if executeErr != nil {
		statusCode := statusCodeFromError(executeErr)
		server.config.Logger.Debug(logOperationFailed, zap.String("operation", operationName), zap.Int("status", statusCode), zap.Error(executeErr))
		server.writeJSON(writer, statusCode, operationFailure{
			Error:    executeErr.Error(),
			Result:   response.Result,
			Warnings: response.Warnings,
		})
		return
	}
	server.writeJSON(writer, http.StatusOK, response)
}

func (server Server) writeJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	var buffer bytes.Buffer
	if encodeErr := json.NewEncoder(&buffer).Encode(payload); encodeErr != nil {
		fallback := map[string]string{errorFieldName: fmt.Sprintf("encode response: %v", encodeErr)}
		writer.Header().Set(headerContentType, mimeTypeJSON)
		writer.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(writer).Encode(fallback)
		return
	}
	writer.Header().Set(headerContentType, mimeTypeJSON)
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(buffer.Bytes())
}

func statusCodeFromError(err error) int {
	var operationError OperationError
	if errors.As(err, &operationError) {
		return operationError.StatusCode()
	}
	return http.StatusInternalServerError
}
