package integration_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// TestStdioProtocolCompliance verifies the server works correctly over stdio transport
// using the official MCP SDK client. This catches protocol issues that shell-based
// tests might miss.
func TestStdioProtocolCompliance(t *testing.T) {
	// Build the server first if binary doesn't exist
	binaryPath := "./bin/splitlab"
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		// Try relative to test directory
		binaryPath = "../../bin/splitlab"
		if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
			t.Skip("Server binary not found. Run 'go build -o bin/splitlab ./cmd/server' first.")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Create command with environment
	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Env = append(os.Environ(),
		"SPLITLAB_TRANSPORT=stdio",
		"SPLITLAB_DB_PATH=:memory:",
	)

	// Spawn server as subprocess using SDK's CommandTransport
	transport := &sdkmcp.CommandTransport{
		Command: cmd,
	}

	// Create client
	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	// Connect and initialize
	session, err := client.Connect(ctx, transport, nil)
	require.NoError(t, err, "Failed to connect to server")
	defer session.Close()

	// Verify initialize response
	t.Run("ServerInfo", func(t *testing.T) {
		initResult := session.InitializeResult()
		require.NotNil(t, initResult)
		require.NotNil(t, initResult.ServerInfo)
		require.Equal(t, "splitlab", initResult.ServerInfo.Name)
		require.Equal(t, "0.1.0", initResult.ServerInfo.Version)
	})

	t.Run("ListTools", func(t *testing.T) {
		tools, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "tools/list failed")

		toolNames := make(map[string]bool)
		for _, tool := range tools.Tools {
			toolNames[tool.Name] = true
		}

		expectedTools := []string{
			"create_experiment",
			"list_experiments",
			"get_experiment",
			"assign_participant",
			"record_conversion",
			"update_experiment_status",
			"get_experiment_activity",
		}
		for _, name := range expectedTools {
			require.True(t, toolNames[name], "Missing expected tool: %s", name)
		}
	})

	t.Run("CallCreateExperiment", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name: "create_experiment",
			Arguments: map[string]any{
				"name":       "Checkout button",
				"created_by": "user1",
				"variants": []map[string]any{
					{"key": "control", "name": "Control", "allocation": 0.5},
					{"key": "b", "name": "VariantB", "allocation": 0.5},
				},
				"success_metrics": []map[string]any{{"name": "conversion_rate"}},
			},
		})
		require.NoError(t, err, "tools/call create_experiment failed")
		require.False(t, result.IsError, "create_experiment returned error: %v", result)
	})

	t.Run("CallListExperiments", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name: "list_experiments",
		})
		require.NoError(t, err, "tools/call list_experiments failed")
		require.False(t, result.IsError, "list_experiments returned error: %v", result)
		require.NotEmpty(t, result.Content, "list_experiments returned no content")

		hasText := false
		for _, content := range result.Content {
			if textContent, ok := content.(*sdkmcp.TextContent); ok {
				hasText = true
				require.Contains(t, textContent.Text, "Checkout button")
			}
		}
		require.True(t, hasText, "list_experiments should return text content")
	})
}

// TestStdioProtocol_StdoutHygiene verifies that the first thing the server
// writes to stdout is the initialize response; logs must go to stderr.
func TestStdioProtocol_StdoutHygiene(t *testing.T) {
	binaryPath := "./bin/splitlab"
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		binaryPath = "../../bin/splitlab"
		if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
			t.Skip("Server binary not found. Run 'go build -o bin/splitlab ./cmd/server' first.")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Env = append(os.Environ(),
		"SPLITLAB_TRANSPORT=stdio",
		"SPLITLAB_DB_PATH=:memory:",
		"SPLITLAB_LOG_LEVEL=debug",
	)

	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	initReq := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}`
	_, err = stdin.Write([]byte(initReq + "\n"))
	require.NoError(t, err)

	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		if scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var first string
	select {
	case first = <-lines:
	case <-ctx.Done():
		t.Fatal("Timeout waiting for server response")
	}

	var msg struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      int             `json:"id"`
		Result  json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(first), &msg), "stdout must start with a JSON-RPC message, got %q", first)
	require.Equal(t, "2.0", msg.JSONRPC)
	require.Equal(t, 1, msg.ID)
	require.NotEmpty(t, msg.Result)
}
