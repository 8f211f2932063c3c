package handlers_flows

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/strongcodr/lowcodefusion/lcf/config"
	"github.com/strongcodr/lowcodefusion/lcf/fetcher"
	"github.com/strongcodr/lowcodefusion/lcf/flows"
	"github.com/strongcodr/lowcodefusion/lcf/lcferrors"
	"github.com/strongcodr/lowcodefusion/lcf/pkgstore"
	"github.com/strongcodr/lowcodefusion/lcf/stubgen"
)

// Ensure FlowServiceImpl implements FlowService
var _ FlowService = (*FlowServiceImpl)(nil)

// FlowServiceImpl implements FlowService against extracted integration
// packages on local disk. With an object store attached it pulls missing
// package archives before parsing.
type FlowServiceImpl struct {
	dataDir string
	store   pkgstore.ObjectStore
	bucket  string
}

// NewFlowServiceImpl creates a flow service rooted at the directory that
// holds extracted integration packages.
func NewFlowServiceImpl(dataDir string) *FlowServiceImpl {
	return &FlowServiceImpl{dataDir: dataDir}
}

// NewFlowServiceImplWithStore creates a flow service that pulls missing
// packages from an object store into the data dir.
func NewFlowServiceImplWithStore(dataDir string, store pkgstore.ObjectStore, bucket string) *FlowServiceImpl {
	return &FlowServiceImpl{dataDir: dataDir, store: store, bucket: bucket}
}

func (s *FlowServiceImpl) ParseOperations(input *config.ParseOperationsRequest) (*config.ParseOperationsResponse, error) {
	srcDir, err := s.srcDir(input.SrcDir, input.Integration)
	if err != nil {
		return nil, err
	}

	ops, err := flows.ParseOperations(srcDir, input.Integration)
	if err != nil {
		return nil, err
	}

	return &config.ParseOperationsResponse{
		Integration: input.Integration,
		Operations:  ops,
	}, nil
}

func (s *FlowServiceImpl) GenerateStubs(input *config.GenerateStubsRequest) (*config.GenerateStubsResponse, error) {
	srcDir, err := s.srcDir(input.SrcDir, input.Integration)
	if err != nil {
		return nil, err
	}

	ops, err := flows.ParseOperations(srcDir, input.Integration)
	if err != nil {
		return nil, err
	}

	language := input.Language
	if language == "" {
		language = stubgen.LanguageGo
	}

	files, err := stubgen.Generate(input.Integration, ops, stubgen.Options{
		Language: language,
		Version:  input.Version,
	})
	if err != nil {
		return nil, err
	}

	return &config.GenerateStubsResponse{
		Integration: input.Integration,
		Language:    language,
		Files:       files,
	}, nil
}

// srcDir resolves where the extracted package for a request lives. Explicit
// directories win; otherwise the extracted copy under the data dir is used,
// pulling the archive from the object store when missing.
func (s *FlowServiceImpl) srcDir(requested string, integration string) (string, error) {
	if requested != "" {
		return requested, nil
	}

	extracted := filepath.Join(s.dataDir, integration)
	if _, err := os.Stat(filepath.Join(extracted, "flows")); err == nil {
		return extracted, nil
	}

	if s.store == nil {
		return "", lcferrors.NewErrorf(lcferrors.ErrorIntegrationNotFound, "no extracted package for %s under %s", integration, s.dataDir)
	}

	if err := s.pullPackage(integration, extracted); err != nil {
		return "", err
	}

	return extracted, nil
}

// pullPackage downloads the latest archive of an integration from the
// object store and extracts it into the data dir.
func (s *FlowServiceImpl) pullPackage(integration string, extracted string) error {
	key, version, err := pkgstore.LatestPackage(s.store, s.bucket, integration)
	if err != nil {
		if pkgstore.IsNoSuchKeyError(err) {
			return lcferrors.NewErrorf(lcferrors.ErrorIntegrationNotFound, "no package published for %s", integration)
		}
		return lcferrors.NewErrorf(lcferrors.ErrorStorageFailure, "failed to list packages for %s: %v", integration, err)
	}

	output, err := s.store.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return lcferrors.NewErrorf(lcferrors.ErrorStorageFailure, "failed to fetch package %s: %v", key, err)
	}
	defer output.Body.Close()

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	zipPath := filepath.Join(s.dataDir, key)
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, output.Body); err != nil {
		f.Close()
		return err
	}
	f.Close()

	slog.Info("Pulled package from store", "integration", integration, "version", version)

	return fetcher.ExtractZip(zipPath, extracted)
}
