package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/offline-transcriber/internal/types"
)

const folderMimeType = "application/vnd.google-apps.folder"

// ErrTokenMissing means the OAuth token file has not been created yet.
var ErrTokenMissing = errors.New("google drive token file missing")

// DriveClient handles uploading to Google Drive
type DriveClient struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveClient authorizes with a previously saved OAuth token and makes sure
// the root folder exists.
func NewDriveClient(ctx context.Context, credentialsFile, tokenFile, folderName string) (*DriveClient, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	dc := &DriveClient{
		service:    srv,
		folderName: folderName,
	}
	dc.folderID, err = dc.findOrCreateFolder(ctx, folderName, "")
	if err != nil {
		return nil, fmt.Errorf("unable to prepare folder %q: %w", folderName, err)
	}

	return dc, nil
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", file, ErrTokenMissing)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", file, err)
	}
	return tok, nil
}

// Upload stores the transcript and its metadata under <folder>/YYYY/MM/DD and
// returns a link to the transcript.
func (dc *DriveClient) Upload(ctx context.Context, requestName string, result *types.TranscriptionResult) (string, error) {
	now := time.Now()
	folderID, err := dc.ensureDateFolder(ctx, now)
	if err != nil {
		return "", err
	}

	baseFilename := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(requestName))

	txtFile := &drive.File{
		Name:     baseFilename + ".txt",
		Parents:  []string{folderID},
		MimeType: "text/plain",
	}
	created, err := dc.service.Files.Create(txtFile).Media(strings.NewReader(result.Text)).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload transcript: %w", err)
	}

	metaJSON, err := json.MarshalIndent(newTranscriptMeta(requestName, result), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	metaFile := &drive.File{
		Name:     baseFilename + "_meta.json",
		Parents:  []string{folderID},
		MimeType: "application/json",
	}
	if _, err := dc.service.Files.Create(metaFile).Media(bytes.NewReader(metaJSON)).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to upload metadata: %w", err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

// ensureDateFolder creates nested year/month/day folders
func (dc *DriveClient) ensureDateFolder(ctx context.Context, t time.Time) (string, error) {
	parent := dc.folderID
	for _, name := range []string{
		fmt.Sprintf("%d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()),
	} {
		id, err := dc.findOrCreateFolder(ctx, name, parent)
		if err != nil {
			return "", err
		}
		parent = id
	}
	return parent, nil
}

// findOrCreateFolder finds or creates a folder; an empty parentID means the drive root.
func (dc *DriveClient) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	query := folderQuery(name, parentID)

	r, err := dc.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to search for folder: %w", err)
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}

	file, err := dc.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create folder: %w", err)
	}
	return file.Id, nil
}

func folderQuery(name, parentID string) string {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), folderMimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	return q
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// SharedFileDownloader fetches publicly shared Drive files without OAuth.
type SharedFileDownloader struct {
	client  *http.Client
	baseURL string
}

// NewSharedFileDownloader creates a downloader. An empty baseURL uses drive.google.com.
func NewSharedFileDownloader(client *http.Client, baseURL string) *SharedFileDownloader {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	if baseURL == "" {
		baseURL = "https://drive.google.com"
	}
	return &SharedFileDownloader{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// ErrNotAccessible means Drive refused the download.
var ErrNotAccessible = errors.New("file not accessible (may be private or doesn't exist)")

// ErrTooLarge means the download exceeded the size limit.
var ErrTooLarge = errors.New("file too large")

// Download reads up to maxBytes of the shared file with the given ID.
func (d *SharedFileDownloader) Download(ctx context.Context, fileID string, maxBytes int64) ([]byte, error) {
	url := fmt.Sprintf("%s/uc?export=download&id=%s", d.baseURL, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download from Google Drive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrNotAccessible, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read download: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
