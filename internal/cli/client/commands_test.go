package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	URI    string
	Body   map[string]interface{}
}

// fakeServer answers every request with the data registered for "METHOD URI".
func fakeServer(t *testing.T, responses map[string]interface{}) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, URI: r.URL.RequestURI()}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.Body)
		}
		seen = append(seen, rec)

		data, ok := responses[r.Method+" "+r.URL.RequestURI()]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func runCLI(t *testing.T, serverURL string, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "tenderflow", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().Bool("output", false, "")
	root.PersistentFlags().String("api-url", "", "")
	root.AddCommand(sub)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--api-url", serverURL))
	err := root.Execute()
	return out.String(), err
}

func TestDocumentCreate_SendsSources(t *testing.T) {
	srv, seen := fakeServer(t, map[string]interface{}{
		"POST /documents": map[string]interface{}{
			"document":      map[string]interface{}{"id": "doc-1", "title": "Website relaunch"},
			"chunks_stored": 3,
			"workflow":      map[string]interface{}{"triggered": true, "agent": "Extract"},
		},
	})

	src := filepath.Join(t.TempDir(), "tender.txt")
	require.NoError(t, os.WriteFile(src, []byte("Scope: relaunch of the public website"), 0644))

	out, err := runCLI(t, srv.URL, DocumentCmd(), "documents", "create", "Website relaunch",
		"--customer", "Stadtwerke", "--source", src, "--start")
	require.NoError(t, err)

	assert.Contains(t, out, "Created Website relaunch (doc-1)")
	assert.Contains(t, out, "Stored 3 chunks")
	assert.Contains(t, out, "Queued: Extract")

	require.Len(t, *seen, 1)
	body := (*seen)[0].Body
	assert.Equal(t, "Stadtwerke", body["customer_name"])
	assert.Equal(t, true, body["start"])
	sources := body["sources"].([]interface{})
	require.Len(t, sources, 1)
	assert.Equal(t, "tender.txt", sources[0].(map[string]interface{})["name"])
}

func TestDocumentCreate_MissingSource(t *testing.T) {
	srv, seen := fakeServer(t, nil)

	_, err := runCLI(t, srv.URL, DocumentCmd(), "documents", "create", "x", "--source", "/does/not/exist.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read source")
	assert.Empty(t, *seen)
}

func TestDocumentList_Pagination(t *testing.T) {
	srv, _ := fakeServer(t, map[string]interface{}{
		"GET /documents?limit=2": map[string]interface{}{
			"items": []map[string]interface{}{
				{"id": "doc-2", "title": "B", "status_label": "Reviewing"},
				{"id": "doc-1", "title": "A", "status_label": "Draft"},
			},
			"cursor":   "next-page",
			"has_more": true,
		},
	})

	out, err := runCLI(t, srv.URL, DocumentCmd(), "documents", "list", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "doc-2")
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "--cursor next-page")
}

func TestDocumentGet_NotFound(t *testing.T) {
	srv, _ := fakeServer(t, nil)

	_, err := runCLI(t, srv.URL, DocumentCmd(), "documents", "get", "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestWorkflowDecide(t *testing.T) {
	srv, seen := fakeServer(t, map[string]interface{}{
		"POST /documents/doc-1/workflow/decision": map[string]interface{}{"triggered": true, "agent": "Timeline"},
	})

	out, err := runCLI(t, srv.URL, WorkflowCmd(), "workflow", "decide", "doc-1", "bid")
	require.NoError(t, err)
	assert.Equal(t, "Queued: Timeline\n", out)
	require.Len(t, *seen, 1)
	assert.Equal(t, "bid", (*seen)[0].Body["decision"])
}

func TestWorkflowOverride_UsesDuplicateRoute(t *testing.T) {
	srv, _ := fakeServer(t, map[string]interface{}{
		"POST /documents/doc-1/workflow/duplicate-override": map[string]interface{}{"triggered": true, "agent": "QuickScan"},
	})

	out, err := runCLI(t, srv.URL, WorkflowCmd(), "workflow", "override", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Queued: QuickScan")
}

func TestWorkflowStatus_JSON(t *testing.T) {
	srv, _ := fakeServer(t, map[string]interface{}{
		"GET /documents/doc-1/workflow": map[string]interface{}{
			"status":       "duplicate_checking",
			"label":        "Duplicate check",
			"can_proceed":  false,
			"block_reason": "possible duplicate found; user override required",
			"decision":     "pending",
		},
	})

	out, err := runCLI(t, srv.URL, WorkflowCmd(), "workflow", "status", "doc-1", "--output")
	require.NoError(t, err)

	var st WorkflowStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "duplicate_checking", st.Status)
	assert.False(t, st.CanProceed)
	assert.NotEmpty(t, st.BlockReason)
}

func TestRunAgent(t *testing.T) {
	srv, _ := fakeServer(t, map[string]interface{}{
		"POST /documents/doc-1/agents/Extract": map[string]interface{}{
			"agent":   "Extract",
			"outcome": map[string]interface{}{"success": true, "confidence": 82},
			"next":    map[string]interface{}{"triggered": false, "reason": "waiting for manual review"},
		},
	})

	out, err := runCLI(t, srv.URL, RunCmd(), "run", "doc-1", "Extract")
	require.NoError(t, err)
	assert.Contains(t, out, "Extract succeeded (confidence 82)")
	assert.Contains(t, out, "Nothing queued: waiting for manual review")
}

func TestAnalyze_ReportsFailures(t *testing.T) {
	srv, _ := fakeServer(t, map[string]interface{}{
		"POST /documents/doc-1/analysis": map[string]interface{}{
			"success": false,
			"results": map[string]interface{}{
				"Tech":  map[string]interface{}{"success": true, "confidence": 70},
				"Legal": map[string]interface{}{"success": false, "error": "timeout"},
			},
			"errors": []string{"Legal: timeout"},
		},
	})

	out, err := runCLI(t, srv.URL, AnalyzeCmd(), "analyze", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "failed: timeout")
	assert.Contains(t, out, "Synthesis incomplete: Legal: timeout")
	assert.Less(t, bytes.Index([]byte(out), []byte("Legal")), bytes.Index([]byte(out), []byte("Tech")))
}

func TestEvidence_FilterByAgent(t *testing.T) {
	srv, seen := fakeServer(t, map[string]interface{}{
		"GET /documents/doc-1/evidence?agent=QuickScan": []map[string]interface{}{
			{"agent": "QuickScan", "chunk_index": 0, "content": "Website audit of https://example.org"},
		},
	})

	out, err := runCLI(t, srv.URL, EvidenceCmd(), "evidence", "doc-1", "--agent", "QuickScan")
	require.NoError(t, err)
	assert.Contains(t, out, "## QuickScan #0")
	assert.Contains(t, out, "Website audit of https://example.org")
	assert.Equal(t, "/documents/doc-1/evidence?agent=QuickScan", (*seen)[0].URI)
}

func TestLogin_SavesURL(t *testing.T) {
	useConfigPath(t)
	srv, _ := fakeServer(t, map[string]interface{}{
		"GET /health": map[string]string{"status": "ok"},
	})

	root := &cobra.Command{Use: "tenderflow", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().Bool("output", false, "")
	root.AddCommand(LoginCmd())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"login", srv.URL + "/"})
	require.NoError(t, root.Execute())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, srv.URL, config.APIURL)
	assert.Contains(t, out.String(), "Using "+srv.URL)
}

func TestLogin_UnreachableServer(t *testing.T) {
	configPath := useConfigPath(t)
	srv, _ := fakeServer(t, nil)

	root := &cobra.Command{Use: "tenderflow", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().Bool("output", false, "")
	root.AddCommand(LoginCmd())
	root.SetOut(io.Discard)
	root.SetArgs([]string{"login", srv.URL})
	require.Error(t, root.Execute())

	_, err := os.Stat(configPath)
	assert.True(t, os.IsNotExist(err))
}
