package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/eolymp/go-latex-editor/store"
)

// maxResponseSize limits PDF and error responses read from services
const maxResponseSize = 64 << 20

// RemoteCompiler posts documents to a compile service: multipart form with "file" (source) and "assets" fields.
// The service responds with PDF, or with 422 and JSON {"error", "log"} when compilation fails.
type RemoteCompiler struct {
	BaseURL   string
	AssetsDir string
	Client    *http.Client
	Cache     Cache
	Log       *zap.Logger
}

func (c *RemoteCompiler) log() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}

	return c.Log
}

func (c *RemoteCompiler) client() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}

	return c.Client
}

func (c *RemoteCompiler) CompileFromSource(ctx context.Context, markup string, progress Progress) (*Artifact, error) {
	key := store.ArtifactKey(markup)

	if a := cached(ctx, c.Cache, key); a != nil {
		c.log().Debug("Using cached artifact", zap.String("key", key))
		progress.report(StageDone)
		return a, nil
	}

	progress.report(StagePreparing)

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	file, err := form.CreateFormFile("file", sourceName)
	if err != nil {
		return nil, err
	}

	if _, err := io.WriteString(file, markup); err != nil {
		return nil, err
	}

	if c.AssetsDir != "" {
		for _, a := range documentAssets(markup, c.AssetsDir, c.log()) {
			// service keeps base names only
			part, err := form.CreateFormFile("assets", path.Base(a.Name))
			if err != nil {
				return nil, err
			}

			if _, err := part.Write(a.Data); err != nil {
				return nil, err
			}
		}
	}

	if err := form.Close(); err != nil {
		return nil, err
	}

	endpoint, err := url.JoinPath(c.BaseURL, "api", "compile")
	if err != nil {
		return nil, fmt.Errorf("invalid compile service address: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", form.FormDataContentType())

	progress.report(StageCompiling)

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to reach compile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := serviceError(resp)
		c.log().Warn("Compilation failed", zap.Int("status", resp.StatusCode), zap.String("error", serr.Message))
		return nil, serr
	}

	pdf, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("unable to read compiled document: %w", err)
	}

	if c.Cache != nil {
		if err := c.Cache.PutArtifact(ctx, key, pdf); err != nil {
			c.log().Warn("Unable to cache artifact", zap.String("key", key), zap.Error(err))
		}
	}

	progress.report(StageDone)

	return &Artifact{Key: key, Size: len(pdf)}, nil
}

func (c *RemoteCompiler) DownloadCachedArtifact(ctx context.Context, artifact *Artifact, w io.Writer) error {
	return download(ctx, c.Cache, artifact, w)
}

// serviceError reads error response: JSON with "error" and "log", or "detail" for generic failures
func serviceError(resp *http.Response) *ServiceError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	var payload struct {
		Error  string `json:"error"`
		Log    string `json:"log"`
		Detail string `json:"detail"`
	}

	serr := &ServiceError{Status: resp.StatusCode}

	if err := json.Unmarshal(data, &payload); err == nil {
		serr.Message = payload.Error
		if serr.Message == "" {
			serr.Message = payload.Detail
		}

		serr.Log = payload.Log
	}

	if serr.Message == "" && resp.StatusCode == http.StatusUnprocessableEntity {
		serr.Message = ExtractError(serr.Log)
	}

	if serr.Message == "" {
		serr.Message = strings.TrimSpace(http.StatusText(resp.StatusCode))
	}

	return serr
}

// RemoteSharer publishes documents through the sharing service and returns public links.
type RemoteSharer struct {
	BaseURL string
	// Token is a bearer token of the document owner
	Token  string
	Client *http.Client
	Log    *zap.Logger
}

func (s *RemoteSharer) client() *http.Client {
	if s.Client == nil {
		return http.DefaultClient
	}

	return s.Client
}

// Share makes document public and returns its share URL.
func (s *RemoteSharer) Share(ctx context.Context, docID string) (string, error) {
	resp, err := s.do(ctx, http.MethodPost, docID)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", serviceError(resp)
	}

	var payload struct {
		ShareToken string `json:"share_token"`
		ShareURL   string `json:"share_url"`
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&payload); err != nil {
		return "", fmt.Errorf("unable to read sharing service response: %w", err)
	}

	if payload.ShareURL == "" {
		return "", &ServiceError{Status: resp.StatusCode, Message: "share link is missing in the response"}
	}

	if s.Log != nil {
		s.Log.Debug("Document shared", zap.String("id", docID), zap.String("token", payload.ShareToken))
	}

	return payload.ShareURL, nil
}

// Revoke makes shared document private again.
func (s *RemoteSharer) Revoke(ctx context.Context, docID string) error {
	resp, err := s.do(ctx, http.MethodDelete, docID)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return serviceError(resp)
	}

	return nil
}

func (s *RemoteSharer) do(ctx context.Context, method, docID string) (*http.Response, error) {
	endpoint, err := url.JoinPath(s.BaseURL, "api", "documents", docID, "share")
	if err != nil {
		return nil, fmt.Errorf("invalid sharing service address: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}

	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to reach sharing service: %w", err)
	}

	return resp, nil
}

// ShareURL builds public link of a shared document the way the sharing service does.
func ShareURL(frontend, token string) string {
	return strings.TrimRight(frontend, "/") + "/shared/" + token
}
