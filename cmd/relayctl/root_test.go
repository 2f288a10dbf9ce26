package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRelay struct {
	mu     sync.Mutex
	bodies []string
}

func (c *capturedRelay) handler(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, string(b))
	c.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"Message received and broadcasted"}`))
}

func (c *capturedRelay) last(t *testing.T) map[string]json.RawMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.bodies)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(c.bodies[len(c.bodies)-1]), &body))
	return body
}

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSend_Content(t *testing.T) {
	relay := &capturedRelay{}
	ts := httptest.NewServer(http.HandlerFunc(relay.handler))
	defer ts.Close()

	out, err := runCmd(t, "", "send", "--relay", ts.URL, "--content", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "Message received and broadcasted\n", out)
	assert.JSONEq(t, `{"content":"hello there"}`, string(relay.last(t)["message"]))
}

func TestSend_JSONArgument(t *testing.T) {
	relay := &capturedRelay{}
	ts := httptest.NewServer(http.HandlerFunc(relay.handler))
	defer ts.Close()

	_, err := runCmd(t, "", "send", "--relay", ts.URL, `{"type":"actions","data":[1,2]}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"actions","data":[1,2]}`, string(relay.last(t)["message"]))
}

func TestSend_Stdin(t *testing.T) {
	relay := &capturedRelay{}
	ts := httptest.NewServer(http.HandlerFunc(relay.handler))
	defer ts.Close()

	_, err := runCmd(t, "  [1, 2, 3]\n", "send", "--relay", ts.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(relay.last(t)["message"]))
}

func TestSend_WrapsActionType(t *testing.T) {
	relay := &capturedRelay{}
	ts := httptest.NewServer(http.HandlerFunc(relay.handler))
	defer ts.Close()

	_, err := runCmd(t, "", "send", "--relay", ts.URL, "--type", "execution_update", `{"action":"run_command","params":{"command":"ls"}}`)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"execution_update","data":{"action":"run_command","params":{"command":"ls"}}}`,
		string(relay.last(t)["message"]))
}

func TestSend_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"empty stdin", "", []string{"send"}, "nothing to send"},
		{"invalid json", "", []string{"send", "{nope"}, "not valid JSON"},
		{"content with document", "", []string{"send", "--content", "hi", "{}"}, "cannot be combined"},
		{"unknown action type", "", []string{"send", "--type", "bogus", "{}"}, "unknown action type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Requests never leave the process for these inputs.
			args := append([]string{"--relay", "http://127.0.0.1:1"}, tt.args...)
			_, err := runCmd(t, tt.stdin, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSend_RelayRejectsRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bad"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := runCmd(t, "", "send", "--relay", ts.URL, "--content", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, "", "version", "--relay", "http://unused")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}
