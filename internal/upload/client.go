package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/olivier-w/sonoscope/internal/analysis"
)

// Client posts clips to a remote analyzer's /upload endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

func (c *Client) Upload(ctx context.Context, path string) (*analysis.Result, error) {
	res, _, err := c.UploadClip(ctx, path)
	return res, err
}

// UploadClip uploads path and also returns the clip id the server assigned,
// if any.
func (c *Client) UploadClip(ctx context.Context, path string) (*analysis.Result, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(FormField, filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", pr)
	if err != nil {
		pr.Close()
		return nil, "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("uploading %s: %w", filepath.Base(path), err)
	}
	defer resp.Body.Close()

	res, clipID, err := analysis.DecodeResponse(resp.Body)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("uploading %s: %s: %w", filepath.Base(path), resp.Status, err)
		}
		return nil, "", err
	}
	return res, clipID, nil
}
