package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"wip/internal/service"
)

// GraphQLCall is one request received on /graphql.
type GraphQLCall struct {
	Op        string
	Variables map[string]any
	Auth      string
}

// UploadCall is one multipart submission received on /upload.
type UploadCall struct {
	Fields        []service.FormField // non-file parts, in received order
	FileField     string
	FileName      string
	Content       []byte
	ContentLength int64
	Headers       http.Header
}

// FakeRemote is an httptest server speaking the remote GraphQL, OAuth and
// upload protocols. Behaviour is controlled through its exported fields,
// which must be set before requests are made.
type FakeRemote struct {
	Server *httptest.Server

	// ViewerJSON is returned as the "viewer" object.
	ViewerJSON string
	// ViewerStatus, if non-zero, is returned as the HTTP status for viewer queries.
	ViewerStatus int
	// Todos is returned by the pending query.
	Todos []service.PendingTask
	// CompletedAt is echoed by completeTodo.
	CompletedAt string
	// MutationErrors, if set, makes create/complete return a GraphQL error.
	MutationErrors []string
	// UploadStatus returns the status for the nth upload (1-based). Defaults to 204.
	UploadStatus func(n int) int
	// PresignFields overrides the fields string for the nth presign (1-based).
	PresignFields func(n int, filename string) string
	// TokenStatus, if non-zero, is the status of the OAuth token endpoint.
	TokenStatus int
	// AccessToken is issued by the OAuth token endpoint.
	AccessToken string

	mu        sync.Mutex
	calls     []GraphQLCall
	uploads   []UploadCall
	tokenReqs []url.Values
	presigns  int
}

// NewFakeRemote starts a fake remote that is closed when the test ends.
func NewFakeRemote(t *testing.T) *FakeRemote {
	t.Helper()
	f := &FakeRemote{
		ViewerJSON:  `{"id":"1","username":"marc","first_name":"Marc","streak":4,"best_streak":12,"completed_todos_count":321,"streaking":true,"products":[{"name":"WIP","url":"https://wip.chat"}]}`,
		AccessToken: "issued-token",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", f.handleGraphQL)
	mux.HandleFunc("/upload", f.handleUpload)
	mux.HandleFunc("/oauth/token", f.handleToken)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the server origin.
func (f *FakeRemote) URL() string {
	return f.Server.URL
}

// Calls returns a copy of the GraphQL calls received so far.
func (f *FakeRemote) Calls() []GraphQLCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GraphQLCall(nil), f.calls...)
}

// CallCount returns how many GraphQL calls of op were received.
func (f *FakeRemote) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Uploads returns a copy of the upload submissions received so far.
func (f *FakeRemote) Uploads() []UploadCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]UploadCall(nil), f.uploads...)
}

// TokenRequests returns the forms posted to the OAuth token endpoint.
func (f *FakeRemote) TokenRequests() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.tokenReqs...)
}

func classify(query string) string {
	switch {
	case strings.Contains(query, "createPresignedUrl("):
		return "createPresignedUrl"
	case strings.Contains(query, "createTodo("):
		return "createTodo"
	case strings.Contains(query, "completeTodo("):
		return "completeTodo"
	case strings.Contains(query, "todos("):
		return "todos"
	default:
		return "viewer"
	}
}

func (f *FakeRemote) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	op := classify(req.Query)

	f.mu.Lock()
	f.calls = append(f.calls, GraphQLCall{Op: op, Variables: req.Variables, Auth: r.Header.Get("Authorization")})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch op {
	case "viewer":
		if f.ViewerStatus != 0 {
			w.WriteHeader(f.ViewerStatus)
			io.WriteString(w, "viewer unavailable")
			return
		}
		fmt.Fprintf(w, `{"data":{"viewer":%s}}`, f.ViewerJSON)
	case "todos":
		todos := make([]map[string]string, 0, len(f.Todos))
		for _, t := range f.Todos {
			todos = append(todos, map[string]string{"id": t.ID, "body": t.Body})
		}
		writeData(w, map[string]any{"viewer": map[string]any{"todos": todos}})
	case "createPresignedUrl":
		f.mu.Lock()
		f.presigns++
		n := f.presigns
		f.mu.Unlock()
		filename, _ := req.Variables["filename"].(string)
		fields := fmt.Sprintf(`{"key":"uploads/%d/%s","policy":"cG9saWN5","x-amz-signature":"sig-%d"}`, n, filename, n)
		if f.PresignFields != nil {
			fields = f.PresignFields(n, filename)
		}
		writeData(w, map[string]any{"createPresignedUrl": map[string]any{
			"url":     f.Server.URL + "/upload",
			"fields":  fields,
			"method":  "post",
			"headers": "{}",
		}})
	case "createTodo", "completeTodo":
		if len(f.MutationErrors) > 0 {
			errs := make([]map[string]string, len(f.MutationErrors))
			for i, m := range f.MutationErrors {
				errs[i] = map[string]string{"message": m}
			}
			json.NewEncoder(w).Encode(map[string]any{"errors": errs})
			return
		}
		var completedAt any
		id := "101"
		if op == "createTodo" {
			if v, ok := req.Variables["completed_at"].(string); ok {
				completedAt = v
			}
		} else {
			id, _ = req.Variables["id"].(string)
			if f.CompletedAt != "" {
				completedAt = f.CompletedAt
			}
		}
		writeData(w, map[string]any{op: map[string]any{"id": id, "completed_at": completedAt}})
	}
}

func writeData(w http.ResponseWriter, data any) {
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (f *FakeRemote) handleUpload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	call := UploadCall{ContentLength: r.ContentLength, Headers: r.Header.Clone()}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(part)
		if part.FileName() != "" {
			call.FileField = part.FormName()
			call.FileName = part.FileName()
			call.Content = data
			continue
		}
		call.Fields = append(call.Fields, service.FormField{Name: part.FormName(), Value: string(data)})
	}

	f.mu.Lock()
	f.uploads = append(f.uploads, call)
	n := len(f.uploads)
	f.mu.Unlock()

	status := http.StatusNoContent
	if f.UploadStatus != nil {
		status = f.UploadStatus(n)
	}
	w.WriteHeader(status)
	if status != http.StatusNoContent {
		io.WriteString(w, "<Error>AccessDenied</Error>")
	}
}

func (f *FakeRemote) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.tokenReqs = append(f.tokenReqs, r.PostForm)
	f.mu.Unlock()

	if f.TokenStatus != 0 && f.TokenStatus != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.TokenStatus)
		io.WriteString(w, `{"error":"invalid_grant"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": f.AccessToken,
		"token_type":   "bearer",
		"scope":        "public",
	})
}
