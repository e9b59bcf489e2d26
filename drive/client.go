// Package drive is the Remote Backup Client: a thin wrapper over the Google
// Drive v3 API that keeps backups as JSON files inside one application
// folder.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// FolderMimeType marks a Drive file as a folder.
	FolderMimeType = "application/vnd.google-apps.folder"

	// BackupMimeType is the content type of every backup file.
	BackupMimeType = "application/json"

	fileFields = "id, name, mimeType, createdTime, modifiedTime, size"
)

// File describes a remote file or folder.
type File struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType,omitempty"`
	CreatedTime  time.Time `json:"createdTime,omitempty"`
	ModifiedTime time.Time `json:"modifiedTime,omitempty"`
	Size         int64     `json:"size,omitempty"`
}

// Options configures a Client.
type Options struct {
	// Endpoint overrides the API base URL, e.g. a test server's
	// "http://127.0.0.1:1234/drive/v3/". Empty selects Google's.
	Endpoint string

	// HTTPClient is the base client the bearer-token transport wraps.
	HTTPClient *http.Client

	// Timeout bounds each request. Zero leaves the transport default.
	Timeout time.Duration
}

// Client talks to the remote folder. Every call reads the current access
// token from its TokenSource at call time.
type Client struct {
	tokens oauth2.TokenSource
	svc    *driveapi.Service
}

// NewClient creates a Drive client authenticated by tokens.
func NewClient(ctx context.Context, tokens oauth2.TokenSource, opts Options) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	guarded := &bearerSource{src: tokens}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: guarded, Base: base.Transport},
		Timeout:   base.Timeout,
	}
	if opts.Timeout > 0 {
		httpClient.Timeout = opts.Timeout
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := driveapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Client{tokens: guarded, svc: svc}, nil
}

// bearerSource turns a missing or empty token into ErrAuthRequired, also for
// a sign-out that races with a request already past the pre-check.
type bearerSource struct {
	src oauth2.TokenSource
}

func (b *bearerSource) Token() (*oauth2.Token, error) {
	tok, err := b.src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthRequired, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrAuthRequired
	}
	return tok, nil
}

func (c *Client) authorize() error {
	_, err := c.tokens.Token()
	return err
}

// FindAppFolder returns the first non-trashed folder named name, or nil.
func (c *Client) FindAppFolder(ctx context.Context, name string) (*File, error) {
	const op = "FindAppFolder"
	if err := c.authorize(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false", FolderMimeType, escapeQuery(name))
	res, err := c.svc.Files.List().
		Q(q).
		Spaces("drive").
		Fields(googleapi.Field("files(" + fileFields + ")")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(op, "", err)
	}
	if len(res.Files) == 0 {
		return nil, nil
	}
	f := toFile(res.Files[0])
	return &f, nil
}

// CreateAppFolder creates a folder unconditionally; callers check for an
// existing one first.
func (c *Client) CreateAppFolder(ctx context.Context, name string) (*File, error) {
	const op = "CreateAppFolder"
	if err := c.authorize(); err != nil {
		return nil, err
	}

	created, err := c.svc.Files.Create(&driveapi.File{Name: name, MimeType: FolderMimeType}).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(op, "", err)
	}
	f := toFile(created)
	return &f, nil
}

// FindFileInFolder returns the first non-trashed file named name inside the
// folder, or nil.
func (c *Client) FindFileInFolder(ctx context.Context, folderID, name string) (*File, error) {
	const op = "FindFileInFolder"
	if err := c.authorize(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", escapeQuery(name), escapeQuery(folderID))
	res, err := c.svc.Files.List().
		Q(q).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(op, folderID, err)
	}
	if len(res.Files) == 0 {
		return nil, nil
	}
	f := toFile(res.Files[0])
	return &f, nil
}

// UploadFile creates a new JSON file in the folder with a multipart
// (metadata + content) upload.
func (c *Client) UploadFile(ctx context.Context, folderID, name string, content []byte) (*File, error) {
	const op = "UploadFile"
	if err := c.authorize(); err != nil {
		return nil, err
	}

	meta := &driveapi.File{Name: name, MimeType: BackupMimeType, Parents: []string{folderID}}
	created, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(content), googleapi.ContentType(BackupMimeType)).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(op, folderID, err)
	}
	f := toFile(created)
	return &f, nil
}

// UpdateFile replaces the whole content of an existing file.
func (c *Client) UpdateFile(ctx context.Context, fileID string, content []byte) (*File, error) {
	const op = "UpdateFile"
	if err := c.authorize(); err != nil {
		return nil, err
	}

	updated, err := c.svc.Files.Update(fileID, &driveapi.File{}).
		Media(bytes.NewReader(content), googleapi.ContentType(BackupMimeType)).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(op, fileID, err)
	}
	f := toFile(updated)
	return &f, nil
}

// ListBackupFiles returns the JSON files in the folder, newest created first.
func (c *Client) ListBackupFiles(ctx context.Context, folderID string) ([]File, error) {
	const op = "ListBackupFiles"
	if err := c.authorize(); err != nil {
		return nil, err
	}

	q := fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false", escapeQuery(folderID), BackupMimeType)
	var files []File
	err := c.svc.Files.List().
		Q(q).
		OrderBy("createdTime desc").
		Fields(googleapi.Field("nextPageToken, files("+fileFields+")")).
		Context(ctx).
		Pages(ctx, func(page *driveapi.FileList) error {
			for _, f := range page.Files {
				files = append(files, toFile(f))
			}
			return nil
		})
	if err != nil {
		return nil, mapError(op, folderID, err)
	}
	return files, nil
}

// DownloadFile fetches a file's content and checks that it is JSON.
func (c *Client) DownloadFile(ctx context.Context, fileID string) (json.RawMessage, error) {
	const op = "DownloadFile"
	if err := c.authorize(); err != nil {
		return nil, err
	}

	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, mapError(op, fileID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewRemoteError(op, resp.StatusCode, "failed to read response body").WithFileID(fileID).WithError(err)
	}
	if !json.Valid(body) {
		return nil, NewRemoteError(op, resp.StatusCode, "response is not valid JSON").WithFileID(fileID)
	}
	return json.RawMessage(body), nil
}

func toFile(f *driveapi.File) File {
	out := File{ID: f.Id, Name: f.Name, MimeType: f.MimeType, Size: f.Size}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		out.CreatedTime = t
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		out.ModifiedTime = t
	}
	return out
}

// escapeQuery escapes a value for use inside a single-quoted Drive query
// string.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// mapError converts a transport or API error into a RemoteError. Auth
// failures detected by the token source come back as ErrAuthRequired.
func mapError(op, fileID string, err error) error {
	if errors.Is(err, ErrAuthRequired) {
		return ErrAuthRequired
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = strings.TrimSpace(apiErr.Body)
		}
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}
		return NewRemoteError(op, apiErr.Code, msg).WithFileID(fileID).WithError(err)
	}

	return NewRemoteError(op, 0, err.Error()).WithFileID(fileID).WithError(err)
}
