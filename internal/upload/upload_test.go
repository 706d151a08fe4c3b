package upload_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/spf13/afero"

	"wip/internal/backend/wip"
	"wip/internal/credentials"
	"wip/internal/service"
	"wip/internal/testutil"
	"wip/internal/transport"
	"wip/internal/upload"
)

type fixture struct {
	remote   *testutil.FakeRemote
	fs       afero.Fs
	uploader *upload.Uploader
}

func newFixture(t *testing.T, opts ...upload.Option) *fixture {
	t.Helper()
	remote := testutil.NewFakeRemote(t)
	creds := credentials.New(service.Credentials{AccessToken: "secret"}, nil)
	gql := transport.New(creds, transport.WithEndpoints(transport.Endpoints{Production: remote.URL()}))
	api := wip.New(gql, wip.APITimeout, nil)

	fs := afero.NewMemMapFs()
	opts = append([]upload.Option{upload.WithFs(fs), upload.WithHTTPClient(gql.HTTPClient())}, opts...)
	return &fixture{remote: remote, fs: fs, uploader: upload.New(api, opts...)}
}

func (f *fixture) file(t *testing.T, path, content string) service.LocalFile {
	t.Helper()
	if err := afero.WriteFile(f.fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return service.LocalFile{Path: path}
}

func TestUpload_EmptyListMakesNoCalls(t *testing.T) {
	f := newFixture(t)

	refs, err := f.uploader.Upload(context.Background(), nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if refs == nil || len(refs) != 0 {
		t.Errorf("expected empty refs, got %#v", refs)
	}
	if n := len(f.remote.Calls()) + len(f.remote.Uploads()); n != 0 {
		t.Errorf("expected no network activity, got %d requests", n)
	}
}

func TestUpload_SendsFieldsInOrderThenFile(t *testing.T) {
	f := newFixture(t)
	f.remote.PresignFields = func(n int, filename string) string {
		return `{"key":"uploads/x/` + filename + `","x-amz-algorithm":"AWS4","policy":"cG9saWN5","acl":"private"}`
	}
	file := f.file(t, "/tmp/shot.png", "PNGDATA")

	refs, err := f.uploader.Upload(context.Background(), []service.LocalFile{file})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	want := service.AttachmentRef{Key: "uploads/x/shot.png", Size: 7, Filename: "shot.png"}
	if len(refs) != 1 || refs[0] != want {
		t.Fatalf("expected %+v, got %+v", want, refs)
	}

	ups := f.remote.Uploads()
	if len(ups) != 1 {
		t.Fatalf("expected one upload, got %d", len(ups))
	}
	up := ups[0]
	wantOrder := []string{"key", "x-amz-algorithm", "policy", "acl"}
	if len(up.Fields) != len(wantOrder) {
		t.Fatalf("expected %d fields, got %+v", len(wantOrder), up.Fields)
	}
	for i, name := range wantOrder {
		if up.Fields[i].Name != name {
			t.Errorf("field %d: expected %s, got %s", i, name, up.Fields[i].Name)
		}
	}
	if up.FileField != upload.FileField || up.FileName != "shot.png" || string(up.Content) != "PNGDATA" {
		t.Errorf("unexpected file part %q %q %q", up.FileField, up.FileName, up.Content)
	}
	if up.ContentLength <= 0 {
		t.Errorf("expected explicit content length, got %d", up.ContentLength)
	}
	if up.Headers.Get("Authorization") != "" {
		t.Errorf("upload must not carry the bearer token")
	}
}

func TestUpload_UsesLocalFileName(t *testing.T) {
	f := newFixture(t)
	file := f.file(t, "/tmp/0af3", "data")
	file.Name = "notes.txt"

	refs, err := f.uploader.Upload(context.Background(), []service.LocalFile{file})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if refs[0].Filename != "notes.txt" {
		t.Errorf("expected display name, got %q", refs[0].Filename)
	}
	if v := f.remote.Calls()[0].Variables["filename"]; v != "notes.txt" {
		t.Errorf("expected presign for notes.txt, got %v", v)
	}
}

func TestUpload_PreservesOrder(t *testing.T) {
	f := newFixture(t)
	files := []service.LocalFile{
		f.file(t, "/a.txt", "a"),
		f.file(t, "/b.txt", "bb"),
		f.file(t, "/c.txt", "ccc"),
	}

	refs, err := f.uploader.Upload(context.Background(), files)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if refs[i].Filename != name || refs[i].Size != int64(i+1) {
			t.Errorf("ref %d: unexpected %+v", i, refs[i])
		}
	}
}

func TestUpload_StopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	f.remote.UploadStatus = func(n int) int {
		if n == 2 {
			return http.StatusForbidden
		}
		return http.StatusNoContent
	}
	files := []service.LocalFile{
		f.file(t, "/1.txt", "one"),
		f.file(t, "/2.txt", "two"),
		f.file(t, "/3.txt", "three"),
	}

	refs, err := f.uploader.Upload(context.Background(), files)
	if refs != nil {
		t.Errorf("expected no refs on failure, got %+v", refs)
	}
	var upErr *service.UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if upErr.Status != http.StatusForbidden || upErr.File != "2.txt" {
		t.Errorf("unexpected error %+v", upErr)
	}
	if n := f.remote.CallCount("createPresignedUrl"); n != 2 {
		t.Errorf("expected 2 presign calls, got %d", n)
	}
	if n := len(f.remote.Uploads()); n != 2 {
		t.Errorf("expected 2 submit attempts, got %d", n)
	}
}

func TestUpload_SuccessPredicate(t *testing.T) {
	f := newFixture(t)
	f.remote.UploadStatus = func(int) int { return http.StatusCreated }
	file := f.file(t, "/a.txt", "a")

	if _, err := f.uploader.Upload(context.Background(), []service.LocalFile{file}); err == nil {
		t.Fatal("expected 201 to be rejected by default")
	}

	f2 := newFixture(t, upload.WithSuccess(upload.Any2xx))
	f2.remote.UploadStatus = func(int) int { return http.StatusCreated }
	file = f2.file(t, "/a.txt", "a")
	if _, err := f2.uploader.Upload(context.Background(), []service.LocalFile{file}); err != nil {
		t.Fatalf("expected 201 accepted with Any2xx, got %v", err)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.uploader.Upload(context.Background(), []service.LocalFile{{Path: "/nope.txt"}})
	var upErr *service.UploadError
	if !errors.As(err, &upErr) || upErr.Status != 0 {
		t.Fatalf("expected UploadError without status, got %v", err)
	}
	if n := len(f.remote.Calls()); n != 0 {
		t.Errorf("expected no presign for a missing file, got %d calls", n)
	}
}

func TestUpload_MissingKey(t *testing.T) {
	f := newFixture(t)
	f.remote.PresignFields = func(int, string) string { return `{"policy":"p"}` }
	file := f.file(t, "/a.txt", "a")

	_, err := f.uploader.Upload(context.Background(), []service.LocalFile{file})
	var protoErr *service.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if n := len(f.remote.Uploads()); n != 0 {
		t.Errorf("expected no submit without a key, got %d", n)
	}
}

func TestUpload_PresignAuthFailure(t *testing.T) {
	remote := testutil.NewFakeRemote(t)
	creds := credentials.New(service.Credentials{}, nil)
	gql := transport.New(creds, transport.WithEndpoints(transport.Endpoints{Production: remote.URL()}))
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/a.txt", []byte("a"), 0644)
	u := upload.New(wip.New(gql, 0, nil), upload.WithFs(fs))

	_, err := u.Upload(context.Background(), []service.LocalFile{{Path: "/a.txt"}})
	if !service.IsAuth(err) {
		t.Fatalf("expected wrapped AuthError, got %v", err)
	}
	if len(remote.Calls()) != 0 {
		t.Errorf("expected no network calls without a token")
	}
}
