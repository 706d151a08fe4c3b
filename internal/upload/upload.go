// Package upload sends local files to presigned upload targets.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"wip/internal/service"
)

// FileField is the multipart part name the file payload is sent under.
const FileField = "file"

// maxErrorBody bounds how much of a rejected upload's response is kept.
const maxErrorBody = 1024

// Presigner issues a fresh upload target for a file name.
type Presigner interface {
	CreatePresignedURL(ctx context.Context, filename string) (service.UploadTarget, error)
}

// SuccessFunc decides whether an upload response status means the object was stored.
type SuccessFunc func(status int) bool

// NoContent accepts only 204, the status object stores answer a presigned POST with.
func NoContent(status int) bool {
	return status == http.StatusNoContent
}

// Any2xx accepts every 2xx status.
func Any2xx(status int) bool {
	return status >= 200 && status < 300
}

// Uploader turns local files into attachment references, one file at a time.
type Uploader struct {
	api     Presigner
	fs      afero.Fs
	client  *http.Client
	success SuccessFunc
	logger  *slog.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithFs sets the filesystem files are read from.
func WithFs(fs afero.Fs) Option {
	return func(u *Uploader) { u.fs = fs }
}

// WithHTTPClient sets the client used to submit files.
// It must not add an Authorization header; upload targets are signed.
func WithHTTPClient(c *http.Client) Option {
	return func(u *Uploader) { u.client = c }
}

// WithSuccess replaces the status predicate (default NoContent).
func WithSuccess(fn SuccessFunc) Option {
	return func(u *Uploader) { u.success = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(u *Uploader) { u.logger = l }
}

// New creates an Uploader that requests targets from api.
func New(api Presigner, opts ...Option) *Uploader {
	u := &Uploader{
		api:     api,
		fs:      afero.NewOsFs(),
		client:  http.DefaultClient,
		success: NoContent,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload sends files in order and returns one reference per file.
// It stops at the first failure; files already stored are not removed.
func (u *Uploader) Upload(ctx context.Context, files []service.LocalFile) ([]service.AttachmentRef, error) {
	if len(files) == 0 {
		return []service.AttachmentRef{}, nil
	}

	refs := make([]service.AttachmentRef, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, &service.UploadError{File: displayName(f), Err: err}
		}
		ref, err := u.uploadOne(ctx, f)
		if err != nil {
			u.logger.Warn("upload failed", "file", displayName(f), "index", i, "err", err)
			return nil, err
		}
		u.logger.Debug("upload stored", "file", ref.Filename, "key", ref.Key, "size", ref.Size)
		refs = append(refs, ref)
	}
	return refs, nil
}

func displayName(f service.LocalFile) string {
	if f.Name != "" {
		return f.Name
	}
	return filepath.Base(f.Path)
}

func (u *Uploader) uploadOne(ctx context.Context, f service.LocalFile) (service.AttachmentRef, error) {
	name := displayName(f)
	fail := func(status int, err error) error {
		return &service.UploadError{File: name, Status: status, Err: err}
	}

	file, err := u.fs.Open(f.Path)
	if err != nil {
		return service.AttachmentRef{}, fail(0, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return service.AttachmentRef{}, fail(0, err)
	}
	if info.IsDir() {
		return service.AttachmentRef{}, fail(0, fmt.Errorf("%s is a directory", f.Path))
	}
	size := info.Size()

	target, err := u.api.CreatePresignedURL(ctx, name)
	if err != nil {
		return service.AttachmentRef{}, fail(0, err)
	}
	key, ok := target.Field("key")
	if !ok || key == "" {
		return service.AttachmentRef{}, fail(0, &service.ProtocolError{
			Op:  "createPresignedUrl",
			Err: errors.New("upload target has no key field"),
		})
	}

	req, err := newRequest(ctx, target, name, file, size)
	if err != nil {
		return service.AttachmentRef{}, fail(0, err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return service.AttachmentRef{}, fail(0, &service.NetworkError{Err: err})
	}
	defer resp.Body.Close()

	if !u.success(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return service.AttachmentRef{}, fail(resp.StatusCode, &service.NetworkError{
			Status: resp.StatusCode,
			Body:   string(body),
		})
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	return service.AttachmentRef{Key: key, Size: size, Filename: name}, nil
}

// newRequest builds the multipart submission: target fields in the order
// given, then the file part. The body is streamed with an exact length,
// which object stores require for POST policies.
func newRequest(ctx context.Context, target service.UploadTarget, name string, content io.Reader, size int64) (*http.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, field := range target.Fields {
		if err := mw.WriteField(field.Name, field.Value); err != nil {
			return nil, err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType(name))
	if _, err := mw.CreatePart(h); err != nil {
		return nil, err
	}
	head := bytes.Clone(buf.Bytes())

	buf.Reset()
	if err := mw.Close(); err != nil {
		return nil, err
	}
	tail := bytes.Clone(buf.Bytes())

	method := strings.ToUpper(target.Method)
	if method == "" {
		method = http.MethodPost
	}
	body := io.MultiReader(bytes.NewReader(head), io.LimitReader(content, size), bytes.NewReader(tail))
	req, err := http.NewRequestWithContext(ctx, method, target.URL, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(len(head)) + size + int64(len(tail))

	for _, hdr := range target.Headers {
		switch http.CanonicalHeaderKey(hdr.Name) {
		case "Content-Type", "Content-Length":
			continue
		}
		req.Header.Set(hdr.Name, hdr.Value)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
