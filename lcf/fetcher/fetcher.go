// Package fetcher is the client side of the LowCodeFusion catalog. It
// resolves integration names to package versions, downloads and extracts
// package archives, and can hand generation off to a remote catalog.
package fetcher

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/strongcodr/lowcodefusion/lcf/config"
	"github.com/strongcodr/lowcodefusion/lcf/lcferrors"
	"github.com/strongcodr/lowcodefusion/lcf/pkgstore"
	"github.com/strongcodr/lowcodefusion/lcf/utils"
)

const defaultTimeout = 60 * time.Second

// Config carries the catalog endpoint and credentials for fetch calls.
type Config struct {
	CatalogURL string
	AuthKey    string
	Timeout    time.Duration

	// Store, when set, serves s3:// download URLs straight from the
	// object store instead of going over HTTP. Used by workers that sit
	// next to the catalog.
	Store pkgstore.ObjectStore
}

// IntegrationDef holds the resolved metadata for an integration package.
type IntegrationDef struct {
	Name        string // e.g. "AWS_EC2"
	Version     string // e.g. "1.4.2"
	DownloadURL string // full URL to the .zip package
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c Config) baseURL() string {
	return strings.TrimRight(c.CatalogURL, "/")
}

func (c Config) httpClient() *http.Client {
	return &http.Client{Timeout: c.timeout()}
}

// FetchIntegration resolves an integration name to its latest published
// version via the catalog API.
func FetchIntegration(cfg Config, name string) (*IntegrationDef, error) {
	apiURL := fmt.Sprintf("%s/api/v1/integrations/%s", cfg.baseURL(), url.PathEscape(name))

	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", apiURL, err)
	}
	setAuthHeader(req, cfg)

	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET %s: %w", apiURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, catalogError(resp)
	}

	// Ensure we got JSON, not HTML from a proxy in the middle
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "json") {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("expected JSON response, got %q: %s", ct, string(body))
	}

	var envelope struct {
		Result struct {
			Name          string `json:"Name"`
			LatestVersion string `json:"LatestVersion"`
		} `json:"Result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON from catalog: %w", err)
	}

	if envelope.Result.LatestVersion == "" {
		return nil, fmt.Errorf("catalog response missing LatestVersion for %s", name)
	}

	resolved := envelope.Result.Name
	if resolved == "" {
		resolved = name
	}

	return &IntegrationDef{
		Name:        resolved,
		Version:     envelope.Result.LatestVersion,
		DownloadURL: fmt.Sprintf("%s/packages/%s-%s.zip", cfg.baseURL(), resolved, envelope.Result.LatestVersion),
	}, nil
}

// DownloadPackage fetches the package archive described by def into
// targetDir and returns the path of the saved zip file.
func DownloadPackage(cfg Config, def *IntegrationDef, targetDir string) (string, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", err
	}

	zipPath := filepath.Join(targetDir, fmt.Sprintf("%s-%s.zip", def.Name, def.Version))

	if strings.HasPrefix(def.DownloadURL, "s3://") {
		if err := downloadFromStore(cfg, def.DownloadURL, zipPath); err != nil {
			return "", err
		}
		return zipPath, nil
	}

	headers := map[string]string{}
	if cfg.AuthKey != "" {
		headers["Authorization"] = "Bearer " + cfg.AuthKey
	}

	if err := utils.DownloadFileWithProgress(def.DownloadURL, def.Name, zipPath, headers, cfg.timeout()); err != nil {
		return "", fmt.Errorf("failed to download from %s: %w", def.DownloadURL, err)
	}

	return zipPath, nil
}

func downloadFromStore(cfg Config, rawURL string, zipPath string) error {
	if cfg.Store == nil {
		return fmt.Errorf("no object store configured for %s", rawURL)
	}

	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return err
	}

	output, err := cfg.Store.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if pkgstore.IsNoSuchKeyError(err) {
			return lcferrors.NewErrorf(lcferrors.ErrorPackageNotFound, "package %s not found in store", key)
		}
		return err
	}
	defer output.Body.Close()

	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create zip file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, output.Body); err != nil {
		return fmt.Errorf("failed to write zip file: %w", err)
	}

	return nil
}

func parseS3URL(rawURL string) (bucket string, key string, err error) {
	trimmed := strings.TrimPrefix(rawURL, "s3://")
	bucket, key, found := strings.Cut(trimmed, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 url: %s", rawURL)
	}
	return bucket, key, nil
}

// ExtractZip extracts the package archive to the target directory.
func ExtractZip(zipPath string, targetDir string) error {
	return Unzip(zipPath, targetDir)
}

// Unzip is a helper to extract zip archives
func Unzip(src, dest string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return lcferrors.NewErrorf(lcferrors.ErrorPackageCorrupt, "failed to open package archive %s: %v", src, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	for _, file := range reader.File {
		if err := extractFile(file, dest); err != nil {
			return fmt.Errorf("failed to extract file %s: %w", file.Name, err)
		}
	}

	return nil
}

// extractFile extracts a single file from the zip archive
func extractFile(file *zip.File, dest string) error {
	// Zip slip guard: entry paths must stay inside the destination
	if !filepath.IsLocal(file.Name) {
		return lcferrors.NewErrorf(lcferrors.ErrorPackageCorrupt, "illegal file path: %s", file.Name)
	}

	filePath := filepath.Join(dest, file.Name)

	if file.FileInfo().IsDir() {
		return os.MkdirAll(filePath, file.Mode())
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}

	outFile, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return err
	}
	defer outFile.Close()

	inFile, err := file.Open()
	if err != nil {
		return err
	}
	defer inFile.Close()

	_, err = io.Copy(outFile, inFile)
	return err
}

// ListOperations asks the catalog for the parsed operations of an
// integration's latest package.
func ListOperations(cfg Config, integration string) (*config.ParseOperationsResponse, error) {
	apiURL := fmt.Sprintf("%s/api/v1/integrations/%s/operations", cfg.baseURL(), url.PathEscape(integration))

	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", apiURL, err)
	}
	setAuthHeader(req, cfg)

	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET %s: %w", apiURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, catalogError(resp)
	}

	var envelope struct {
		Result config.ParseOperationsResponse `json:"Result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON from catalog: %w", err)
	}

	return &envelope.Result, nil
}

// GenerateRemote asks the catalog to parse and generate stubs on its side
// and returns the rendered file set.
func GenerateRemote(cfg Config, integration string, language string) (*config.GenerateStubsResponse, error) {
	payload, err := json.Marshal(config.GenerateStubsRequest{
		Integration: integration,
		Language:    language,
	})
	if err != nil {
		return nil, err
	}

	apiURL := cfg.baseURL() + "/api/v1/generate"
	req, err := http.NewRequest(http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", apiURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuthHeader(req, cfg)

	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to POST %s: %w", apiURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, catalogError(resp)
	}

	var envelope struct {
		Result config.GenerateStubsResponse `json:"Result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON from catalog: %w", err)
	}

	return &envelope.Result, nil
}

func setAuthHeader(req *http.Request, cfg Config) {
	if cfg.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.AuthKey)
	}
}

// catalogError turns a non-200 catalog response into an error. Catalog
// error envelopes keep their code and message; anything else maps from the
// HTTP status.
func catalogError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var envelope struct {
		Error struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		if _, known := lcferrors.ErrorLookup[envelope.Error.Code]; known {
			return lcferrors.NewError(envelope.Error.Code, envelope.Error.Message)
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return lcferrors.NewError(lcferrors.ErrorAuthFailure, "catalog rejected the configured auth key")
	case http.StatusNotFound:
		return lcferrors.NewError(lcferrors.ErrorIntegrationNotFound, "catalog has no such resource")
	default:
		return lcferrors.NewErrorf(lcferrors.ErrorServiceUnavailable, "catalog returned status %s", resp.Status)
	}
}
