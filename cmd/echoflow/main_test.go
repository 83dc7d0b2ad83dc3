package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweetpotato0/echoflow/llm"
	"github.com/sweetpotato0/echoflow/message"
	"github.com/sweetpotato0/echoflow/pkg/logging"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
)

var helloChunks = []string{
	`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":null}]}`,
	`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"Hello"},"finish_reason":null}]}`,
	`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":null}]}`,
	`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
	`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":12,"completion_tokens":2,"total_tokens":14}}`,
}

func openAIServer(t *testing.T) (*httptest.Server, <-chan []byte) {
	t.Helper()
	bodies := make(chan []byte, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		bodies <- data

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, c := range helloChunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv, bodies
}

func setup(t *testing.T, baseURL string) {
	t.Helper()
	color.NoColor = true
	logging.SetLogger(logging.Discard())
	t.Cleanup(logging.Reset)

	t.Setenv("ECHOFLOW_PROVIDER", "openai")
	t.Setenv("ECHOFLOW_API_KEY", "test-key")
	t.Setenv("ECHOFLOW_BASE_URL", baseURL)
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestChat(t *testing.T) {
	srv, bodies := openAIServer(t)
	setup(t, srv.URL)

	out, status, err := execute(t, "", "chat", "--system", "Be brief.", "hello?")
	require.NoError(t, err)
	assert.Equal(t, "Hello world\n", out)
	assert.Contains(t, status, "total tokens in=12 out=2")

	sent := gjson.ParseBytes(<-bodies)
	assert.Equal(t, "gpt-4o-mini", sent.Get("model").String())
	assert.Equal(t, "Be brief.", sent.Get("messages.0.content").String())
	assert.Equal(t, "hello?", sent.Get("messages.1.content").String())
}

func TestChatTrace(t *testing.T) {
	srv, _ := openAIServer(t)
	setup(t, srv.URL)
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	out, status, err := execute(t, "", "chat", "--trace", "hello?")
	require.NoError(t, err)
	assert.Equal(t, "Hello world\n", out)
	assert.Contains(t, status, `"Name":"agent.run"`)
}

func TestChatTelemetryConfig(t *testing.T) {
	srv, _ := openAIServer(t)
	setup(t, srv.URL)
	t.Setenv("ECHOFLOW_TELEMETRY_EXPORTER", "zipkin")

	_, _, err := execute(t, "", "chat", "hello?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telemetry.exporter")
}

func TestChatStreamWithTools(t *testing.T) {
	srv, bodies := openAIServer(t)
	setup(t, srv.URL)

	out, status, err := execute(t, "", "chat", "--stream", "--tools", "what time is it?")
	require.NoError(t, err)
	assert.Equal(t, "Hello world\n", out)
	assert.Contains(t, status, "tokens in=12 out=2 cached=0")

	sent := gjson.ParseBytes(<-bodies)
	assert.Equal(t, "current_time", sent.Get("tools.0.function.name").String())
}

func TestChatHistoryAndSave(t *testing.T) {
	srv, bodies := openAIServer(t)
	setup(t, srv.URL)

	dir := t.TempDir()
	historyPath := filepath.Join(dir, "history.json")
	data, err := json.Marshal([]*message.Message{
		message.NewText(message.RoleUser, "earlier"),
		message.NewText(message.RoleAssistant, "noted"),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(historyPath, data, 0o600))
	savePath := filepath.Join(dir, "saved.json")

	_, _, err = execute(t, "hello from stdin\n", "chat", "--history", historyPath, "--save", savePath)
	require.NoError(t, err)

	sent := gjson.ParseBytes(<-bodies)
	assert.Equal(t, "earlier", sent.Get("messages.1.content").String())
	assert.Equal(t, "assistant", sent.Get("messages.2.role").String())
	assert.Equal(t, "hello from stdin", sent.Get("messages.3.content").String())

	saved, err := os.ReadFile(savePath)
	require.NoError(t, err)
	msgs, err := message.DecodeTranscript(saved)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "Hello world", msgs[3].Text())
}

func TestChatDocuments(t *testing.T) {
	srv, bodies := openAIServer(t)
	setup(t, srv.URL)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Keys rotate monthly.\n\nAsk ops for access.\n"), 0o600))

	_, _, err := execute(t, "", "chat", "--doc", path, "how often do keys rotate?")
	require.NoError(t, err)

	sent := gjson.ParseBytes(<-bodies)
	assert.Equal(t, "system", sent.Get("messages.1.role").String())
	assert.Equal(t, "[notes.txt #1]\nKeys rotate monthly.", sent.Get("messages.1.content.0.text").String())
	assert.Equal(t, "[notes.txt #2]\nAsk ops for access.", sent.Get("messages.1.content.1.text").String())
	assert.Equal(t, "how often do keys rotate?", sent.Get("messages.2.content").String())

	guide := filepath.Join(t.TempDir(), "guide.md")
	require.NoError(t, os.WriteFile(guide, []byte("# Keys\n\nKeys rotate monthly.\n"), 0o600))
	_, _, err = execute(t, "", "chat", "--doc", guide, "hi")
	require.NoError(t, err)
	sent = gjson.ParseBytes(<-bodies)
	assert.Equal(t, "[guide.md #1]\n# Keys\n\nKeys rotate monthly.", sent.Get("messages.1.content").String())

	empty := filepath.Join(t.TempDir(), "empty.md")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0o600))
	_, _, err = execute(t, "", "chat", "--doc", empty, "hi")
	require.Error(t, err)
}

func TestChatMaxInput(t *testing.T) {
	srv, _ := openAIServer(t)
	setup(t, srv.URL)
	t.Setenv("ECHOFLOW_MAX_INPUT", "4")

	_, _, err := execute(t, "", "chat", "this prompt is too long")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit is 4")

	_, _, err = execute(t, "", "chat", "hi")
	require.NoError(t, err)
}

func TestChatErrors(t *testing.T) {
	srv, _ := openAIServer(t)
	setup(t, srv.URL)

	_, _, err := execute(t, "   ", "chat")
	require.Error(t, err)

	_, _, err = execute(t, "", "chat", "--history", filepath.Join(t.TempDir(), "missing.json"), "hi")
	require.Error(t, err)

	t.Setenv("ECHOFLOW_PROVIDER", "azure")
	_, _, err = execute(t, "", "chat", "hi")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "", "version", "-o", "json")
	require.NoError(t, err)
	assert.True(t, gjson.Get(out, "goVersion").Exists())

	out, _, err = execute(t, "", "version", "-o", "short")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	_, _, err = execute(t, "", "version", "-o", "yaml")
	require.Error(t, err)
}

func TestCurrentTime(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	out, err := currentTime(context.Background(), currentTimeArgs{})
	require.NoError(t, err)
	assert.Equal(t, fixed.Format(time.RFC1123Z), out)

	_, err = currentTime(context.Background(), currentTimeArgs{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestPrinterEvents(t *testing.T) {
	color.NoColor = true
	var out, status bytes.Buffer
	p := newPrinter(&out, &status)

	p.event(llm.StreamEvent{Type: llm.EventTextDelta, Text: "Checking"})
	p.event(llm.StreamEvent{Type: llm.EventTool, Tool: &message.ToolCall{
		ID: "t1", Name: "current_time", Input: message.NewInput(message.Arg("timezone", "Asia/Tokyo")),
	}})
	p.event(llm.StreamEvent{Type: llm.EventStop, StopReason: "tool_use"})
	p.event(llm.StreamEvent{Type: llm.EventMetadata, Metadata: &llm.Metadata{
		InputUsage:  &llm.Usage{InputTokens: 3},
		OutputUsage: &llm.Usage{OutputTokens: 4},
	}})

	assert.Equal(t, "Checking\n", out.String())
	assert.Contains(t, status.String(), `tool current_time {"timezone":"Asia/Tokyo"} (t1)`)
	assert.Contains(t, status.String(), "tokens in=3 out=4 cached=0")
}
