package wip_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"wip/internal/backend/wip"
	"wip/internal/credentials"
	"wip/internal/service"
	"wip/internal/testutil"
	"wip/internal/transport"
)

func newClient(t *testing.T, token string) (*wip.Client, *testutil.FakeRemote, *credentials.Store) {
	t.Helper()
	remote := testutil.NewFakeRemote(t)
	creds := credentials.New(service.Credentials{AccessToken: token}, nil)
	gql := transport.New(creds, transport.WithEndpoints(transport.Endpoints{
		Production:  remote.URL(),
		Development: remote.URL(),
	}))
	return wip.New(gql, wip.APITimeout, nil), remote, creds
}

func TestViewer_MapsFields(t *testing.T) {
	client, remote, _ := newClient(t, "secret")

	snap, err := client.Viewer(context.Background())
	if err != nil {
		t.Fatalf("Viewer: %v", err)
	}
	if snap.Username != "marc" || snap.FirstName != "Marc" {
		t.Errorf("unexpected identity %+v", snap)
	}
	if snap.CurrentStreak != 4 || snap.BestStreak != 12 || snap.CompletedTodos != 321 || !snap.Streaking {
		t.Errorf("unexpected streak fields %+v", snap)
	}
	if len(snap.Products) != 1 || snap.Products[0].Name != "WIP" {
		t.Errorf("unexpected products %+v", snap.Products)
	}
	if calls := remote.Calls(); len(calls) != 1 || calls[0].Auth != "Bearer secret" {
		t.Errorf("expected one authenticated call, got %+v", calls)
	}
}

func TestViewer_NullProductsBecomeEmpty(t *testing.T) {
	client, remote, _ := newClient(t, "secret")
	remote.ViewerJSON = `{"username":"marc","products":null}`

	snap, err := client.Viewer(context.Background())
	if err != nil {
		t.Fatalf("Viewer: %v", err)
	}
	if snap.Products == nil || len(snap.Products) != 0 {
		t.Errorf("expected empty products, got %#v", snap.Products)
	}
}

func TestViewer_NullViewerIsProtocolError(t *testing.T) {
	client, remote, _ := newClient(t, "secret")
	remote.ViewerJSON = `null`

	_, err := client.Viewer(context.Background())
	var protoErr *service.ProtocolError
	if !errors.As(err, &protoErr) || protoErr.Op != "viewer" {
		t.Fatalf("expected viewer ProtocolError, got %v", err)
	}
}

func TestPendingTodos_PreservesOrder(t *testing.T) {
	client, remote, _ := newClient(t, "secret")
	for i := 0; i < service.PendingLimit; i++ {
		remote.Todos = append(remote.Todos, service.PendingTask{ID: fmt.Sprint(1000 - i), Body: fmt.Sprintf("task %d", i)})
	}

	got, err := client.PendingTodos(context.Background(), "task")
	if err != nil {
		t.Fatalf("PendingTodos: %v", err)
	}
	if len(got) != len(remote.Todos) {
		t.Fatalf("expected %d tasks, got %d", len(remote.Todos), len(got))
	}
	for i := range got {
		if got[i] != remote.Todos[i] {
			t.Fatalf("task %d: expected %+v, got %+v", i, remote.Todos[i], got[i])
		}
	}
	if v := remote.Calls()[0].Variables["filter"]; v != "task" {
		t.Errorf("expected filter variable, got %v", v)
	}
}

func TestPendingTodos_EmptyFilterIsNull(t *testing.T) {
	client, remote, _ := newClient(t, "secret")

	if _, err := client.PendingTodos(context.Background(), ""); err != nil {
		t.Fatalf("PendingTodos: %v", err)
	}
	vars := remote.Calls()[0].Variables
	if v, ok := vars["filter"]; !ok || v != nil {
		t.Errorf("expected explicit null filter, got %v (present=%v)", v, ok)
	}
}

func TestPendingTodos_CapsAtLimit(t *testing.T) {
	client, remote, _ := newClient(t, "secret")
	for i := 0; i < service.PendingLimit+5; i++ {
		remote.Todos = append(remote.Todos, service.PendingTask{ID: fmt.Sprint(i), Body: "x"})
	}

	got, err := client.PendingTodos(context.Background(), "")
	if err != nil {
		t.Fatalf("PendingTodos: %v", err)
	}
	if len(got) != service.PendingLimit {
		t.Errorf("expected %d tasks, got %d", service.PendingLimit, len(got))
	}
}

func TestCreateTodo_OpenTaskSendsNullCompletedAt(t *testing.T) {
	client, remote, _ := newClient(t, "secret")

	res, err := client.CreateTodo(context.Background(), "buy milk", nil, nil)
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if res.ID != "101" || res.CompletedAt != nil {
		t.Errorf("unexpected result %+v", res)
	}

	vars := remote.Calls()[0].Variables
	if vars["body"] != "buy milk" {
		t.Errorf("unexpected body %v", vars["body"])
	}
	if v, ok := vars["completed_at"]; !ok || v != nil {
		t.Errorf("expected null completed_at, got %v", v)
	}
	if atts, ok := vars["attachments"].([]any); !ok || len(atts) != 0 {
		t.Errorf("expected empty attachments list, got %#v", vars["attachments"])
	}
}

func TestCreateTodo_CompletedSendsTimestampAndAttachments(t *testing.T) {
	client, remote, _ := newClient(t, "secret")
	at := time.Date(2024, 3, 9, 14, 30, 5, 123_000_000, time.UTC)
	refs := []service.AttachmentRef{{Key: "uploads/1/a.png", Size: 42, Filename: "a.png"}}

	res, err := client.CreateTodo(context.Background(), "shipped", &at, refs)
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if res.CompletedAt == nil || !res.CompletedAt.Equal(at) {
		t.Errorf("expected completed at %v, got %v", at, res.CompletedAt)
	}

	vars := remote.Calls()[0].Variables
	if vars["completed_at"] != "2024-03-09T14:30:05.123Z" {
		t.Errorf("unexpected completed_at %v", vars["completed_at"])
	}
	atts, _ := vars["attachments"].([]any)
	if len(atts) != 1 {
		t.Fatalf("expected one attachment, got %#v", vars["attachments"])
	}
	att := atts[0].(map[string]any)
	if att["key"] != "uploads/1/a.png" || att["filename"] != "a.png" || att["size"] != float64(42) {
		t.Errorf("unexpected attachment %v", att)
	}
}

func TestCompleteTodo_SendsID(t *testing.T) {
	client, remote, _ := newClient(t, "secret")
	remote.CompletedAt = "2024-03-09T14:30:05.000Z"

	res, err := client.CompleteTodo(context.Background(), "77", nil)
	if err != nil {
		t.Fatalf("CompleteTodo: %v", err)
	}
	if res.ID != "77" || res.CompletedAt == nil {
		t.Errorf("unexpected result %+v", res)
	}
	if remote.CallCount("completeTodo") != 1 {
		t.Errorf("expected one completeTodo call")
	}
}

func TestCreateTodo_RemoteErrors(t *testing.T) {
	client, remote, _ := newClient(t, "secret")
	remote.MutationErrors = []string{"Body can't be blank"}

	_, err := client.CreateTodo(context.Background(), "", nil, nil)
	var remoteErr *service.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
}

func TestCreatePresignedURL_DecodesOrderedFields(t *testing.T) {
	client, remote, _ := newClient(t, "secret")
	remote.PresignFields = func(n int, filename string) string {
		return `{"z-last-alpha":"1","key":"uploads/` + filename + `","acl":"private","policy":"p"}`
	}

	target, err := client.CreatePresignedURL(context.Background(), "report.pdf")
	if err != nil {
		t.Fatalf("CreatePresignedURL: %v", err)
	}
	if target.URL != remote.URL()+"/upload" {
		t.Errorf("unexpected url %q", target.URL)
	}
	if target.Method != "post" {
		t.Errorf("unexpected method %q", target.Method)
	}
	var names []string
	for _, f := range target.Fields {
		names = append(names, f.Name)
	}
	if got := strings.Join(names, ","); got != "z-last-alpha,key,acl,policy" {
		t.Errorf("expected document order, got %s", got)
	}
	if key, ok := target.Field("key"); !ok || key != "uploads/report.pdf" {
		t.Errorf("unexpected key %q", key)
	}
	if len(target.Headers) != 0 {
		t.Errorf("expected no headers, got %v", target.Headers)
	}
	if v := remote.Calls()[0].Variables["filename"]; v != "report.pdf" {
		t.Errorf("unexpected filename variable %v", v)
	}
}

func TestCreatePresignedURL_MalformedFields(t *testing.T) {
	for name, fields := range map[string]string{
		"not json":  `{"key": `,
		"array":     `["key"]`,
		"scalar":    `42`,
		"empty str": ``,
		"object":    `{"key":"k","policy":{"a":1}}`,
		"number":    `{"key":"k","n":5}`,
		"null":      `{"key":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			client, remote, _ := newClient(t, "secret")
			remote.PresignFields = func(int, string) string { return fields }

			_, err := client.CreatePresignedURL(context.Background(), "a.txt")
			var protoErr *service.ProtocolError
			if !errors.As(err, &protoErr) {
				t.Fatalf("expected ProtocolError, got %v", err)
			}
			if protoErr.Op != "createPresignedUrl" {
				t.Errorf("unexpected op %q", protoErr.Op)
			}
		})
	}
}

func TestExchangeCode_PostsForm(t *testing.T) {
	client, remote, _ := newClient(t, "")
	remote.AccessToken = "fresh"

	token, err := client.ExchangeCode(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if token != "fresh" {
		t.Errorf("expected fresh token, got %q", token)
	}

	reqs := remote.TokenRequests()
	if len(reqs) != 1 {
		t.Fatalf("expected one token request, got %d", len(reqs))
	}
	form := reqs[0]
	want := map[string]string{
		"client_id":    wip.ClientID,
		"code":         "abc123",
		"grant_type":   "authorization_code",
		"redirect_uri": wip.RedirectURI,
	}
	for k, v := range want {
		if form.Get(k) != v {
			t.Errorf("%s: expected %q, got %q", k, v, form.Get(k))
		}
	}
}

func TestExchangeCode_RejectedIsAuthError(t *testing.T) {
	client, remote, creds := newClient(t, "old")
	remote.TokenStatus = http.StatusUnauthorized

	_, err := client.ExchangeCode(context.Background(), "bad")
	if !service.IsAuth(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	var netErr *service.NetworkError
	if !errors.As(err, &netErr) || netErr.Status != http.StatusUnauthorized {
		t.Errorf("expected wrapped 401, got %v", err)
	}
	if creds.Get().AccessToken != "old" {
		t.Errorf("exchange must not touch stored credentials")
	}
}

func TestAuthorizeURL(t *testing.T) {
	client, remote, _ := newClient(t, "")

	u := client.AuthorizeURL()
	if !strings.HasPrefix(u, remote.URL()+wip.AuthorizePath+"?") {
		t.Errorf("unexpected authorize url %q", u)
	}
	for _, part := range []string{"client_id=" + wip.ClientID, "response_type=code", "redirect_uri=urn"} {
		if !strings.Contains(u, part) {
			t.Errorf("expected %q in %q", part, u)
		}
	}
}
