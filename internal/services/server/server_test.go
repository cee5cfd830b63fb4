package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/temirov/promptcomposer/internal/services/server"
)

type echoPayload struct {
	Text string `json:"text"`
}

func newTestServer() server.Server {
	echo := server.OperationExecutorFunc(func(_ context.Context, request server.OperationRequest) (server.OperationResponse, error) {
		var payload echoPayload
		if err := request.Decode(&payload); err != nil {
			return server.OperationResponse{}, err
		}
		if payload.Text == "" {
			return server.OperationResponse{}, server.NewOperationError(http.StatusBadRequest, errors.New("text is required"))
		}
		return server.OperationResponse{Result: strings.ToUpper(payload.Text)}, nil
	})
	failing := server.OperationExecutorFunc(func(context.Context, server.OperationRequest) (server.OperationResponse, error) {
		return server.OperationResponse{}, errors.New("boom")
	})
	partial := server.OperationExecutorFunc(func(context.Context, server.OperationRequest) (server.OperationResponse, error) {
		response := server.OperationResponse{Result: []string{"measured"}, Warnings: []string{"missing: gone"}}
		return response, server.NewOperationError(http.StatusUnprocessableEntity, errors.New("stat failed for missing"))
	})
	return server.NewServer(server.Config{
		Capabilities: []server.Capability{{Name: "echo", Description: "Upper-case text"}},
		Executors:    map[string]server.OperationExecutor{"echo": echo, "fail": failing, "partial": partial},
	})
}

func TestHandlerRoutesOperations(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedResult string
		expectedError  string
	}{
		{name: "success", method: http.MethodPost, path: "/operations/echo", body: `{"text":"hi"}`, expectedStatus: http.StatusOK, expectedResult: "HI"},
		{name: "malformed payload", method: http.MethodPost, path: "/operations/echo", body: `{"text":`, expectedStatus: http.StatusBadRequest, expectedError: "decode payload"},
		{name: "unknown field", method: http.MethodPost, path: "/operations/echo", body: `{"other":1}`, expectedStatus: http.StatusBadRequest, expectedError: "decode payload"},
		{name: "validation error", method: http.MethodPost, path: "/operations/echo", body: ``, expectedStatus: http.StatusBadRequest, expectedError: "text is required"},
		{name: "unknown operation", method: http.MethodPost, path: "/operations/missing", body: `{}`, expectedStatus: http.StatusNotFound, expectedError: "operation not found"},
		{name: "nested operation path", method: http.MethodPost, path: "/operations/echo/extra", body: `{}`, expectedStatus: http.StatusNotFound, expectedError: "operation not found"},
		{name: "wrong method", method: http.MethodGet, path: "/operations/echo", expectedStatus: http.StatusMethodNotAllowed},
		{name: "internal failure", method: http.MethodPost, path: "/operations/fail", body: `{}`, expectedStatus: http.StatusInternalServerError, expectedError: "boom"},
	}

	handler := newTestServer().Handler()
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			request := httptest.NewRequest(testCase.method, testCase.path, strings.NewReader(testCase.body))
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			if recorder.Code != testCase.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", testCase.expectedStatus, recorder.Code, recorder.Body.String())
			}
			if testCase.expectedResult != "" {
				var response struct {
					Result string `json:"result"`
				}
				if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if response.Result != testCase.expectedResult {
					t.Fatalf("expected result %q, got %q", testCase.expectedResult, response.Result)
				}
			}
			if testCase.expectedError != "" {
				var response map[string]string
				if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
					t.Fatalf("decode error response: %v", err)
				}
				if !strings.Contains(response["error"], testCase.expectedError) {
					t.Fatalf("expected error containing %q, got %q", testCase.expectedError, response["error"])
				}
			}
		})
	}
}

func TestHandlerKeepsPartialResultOnFailure(t *testing.T) {
	t.Parallel()

	request := httptest.NewRequest(http.MethodPost, "/operations/partial", strings.NewReader(`{}`))
	recorder := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, recorder.Code)
	}
	var response struct {
		Error    string   `json:"error"`
		Result   []string `json:"result"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Error != "stat failed for missing" {
		t.Fatalf("unexpected error %q", response.Error)
	}
	if len(response.Result) != 1 || response.Result[0] != "measured" {
		t.Fatalf("expected partial result to be kept, got %v", response.Result)
	}
	if len(response.Warnings) != 1 || response.Warnings[0] != "missing: gone" {
		t.Fatalf("expected warnings to be kept, got %v", response.Warnings)
	}
}

func TestOperationErrorUnwraps(t *testing.T) {
	base := errors.New("root cause")
	err := server.NewOperationError(http.StatusConflict, base)
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error")
	}
	var operationError server.OperationError
	if !errors.As(err, &operationError) || operationError.StatusCode() != http.StatusConflict {
		t.Fatalf("expected OperationError with conflict status, got %v", err)
	}
	if server.NewOperationError(http.StatusBadRequest, nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestServerRunExposesCapabilities(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addressCh := make(chan string, 1)
	errorCh := make(chan error, 1)
	go func() {
		errorCh <- newTestServer().Run(ctx, func(address string) {
			addressCh <- address
		})
	}()

	select {
	case address := <-addressCh:
		client := http.Client{Timeout: 2 * time.Second}
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+address+"/capabilities", nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		response, err := client.Do(request)
		if err != nil {
			t.Fatalf("perform request: %v", err)
		}
		defer response.Body.Close()
		if response.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status: %d", response.StatusCode)
		}
		var body struct {
			Capabilities []server.Capability `json:"capabilities"`
		}
		if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(body.Capabilities) != 1 || body.Capabilities[0].Name != "echo" {
			t.Fatalf("unexpected capabilities %+v", body.Capabilities)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not start")
	}

	cancel()
	if err := <-errorCh; err != nil {
		t.Fatalf("server error: %v", err)
	}
}
