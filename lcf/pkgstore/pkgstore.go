// Package pkgstore abstracts where integration packages live. The catalog
// serves package archives from either an S3-compatible object store or an
// in-memory store seeded from a local directory, behind one interface.
package pkgstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
)

// NoSuchKeyError reports a missing object, compatible with the AWS S3
// error code.
type NoSuchKeyError struct {
	Key string
}

func (e *NoSuchKeyError) Error() string {
	return "NoSuchKey: " + e.Key
}

func (e *NoSuchKeyError) Code() string {
	return "NoSuchKey"
}

// IsNoSuchKeyError reports whether err marks a missing object, from either
// the in-memory store or the AWS SDK.
func IsNoSuchKeyError(err error) bool {
	var noSuchKey *NoSuchKeyError
	if errors.As(err, &noSuchKey) {
		return true
	}

	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}

	return false
}

// ObjectStore is the storage interface the catalog serves packages from.
// Using the S3 request types directly lets the real client and the
// in-memory store swap without adapter layers.
type ObjectStore interface {
	GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error)
	PutObject(input *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	DeleteObject(input *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error)
	ListObjects(input *s3.ListObjectsInput) (*s3.ListObjectsOutput, error)
}

// S3ObjectStore backs the catalog with an S3-compatible object store.
type S3ObjectStore struct {
	client *s3.S3
}

func NewS3ObjectStore(client *s3.S3) *S3ObjectStore {
	return &S3ObjectStore{client: client}
}

func (s *S3ObjectStore) GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	return s.client.GetObject(input)
}

func (s *S3ObjectStore) PutObject(input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	return s.client.PutObject(input)
}

func (s *S3ObjectStore) DeleteObject(input *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
	return s.client.DeleteObject(input)
}

func (s *S3ObjectStore) ListObjects(input *s3.ListObjectsInput) (*s3.ListObjectsOutput, error) {
	return s.client.ListObjects(input)
}

// MemoryObjectStore keeps packages in memory. It backs catalogs that serve
// a local package directory, and tests.
type MemoryObjectStore struct {
	objects map[string][]byte // bucket/key -> archive bytes
	mu      sync.RWMutex
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: make(map[string][]byte),
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

func (m *MemoryObjectStore) GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.objects[objectKey(*input.Bucket, *input.Key)]
	if !exists {
		return nil, &NoSuchKeyError{Key: *input.Key}
	}

	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (m *MemoryObjectStore) PutObject(input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey(*input.Bucket, *input.Key)] = data

	return &s3.PutObjectOutput{}, nil
}

// DeleteObject removes an object. Like S3, deleting a missing key is not
// an error.
func (m *MemoryObjectStore) DeleteObject(input *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey(*input.Bucket, *input.Key))

	return &s3.DeleteObjectOutput{}, nil
}

// ListObjects returns the bucket contents matching the request prefix,
// sorted by key. Delimiter grouping is not implemented; the catalog lists
// packages with bare prefixes.
func (m *MemoryObjectStore) ListObjects(input *s3.ListObjectsInput) (*s3.ListObjectsOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := *input.Bucket
	prefix := ""
	if input.Prefix != nil {
		prefix = *input.Prefix
	}

	var contents []*s3.Object
	for storageKey, data := range m.objects {
		if !strings.HasPrefix(storageKey, bucket+"/") {
			continue
		}

		key := storageKey[len(bucket)+1:]
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}

		contents = append(contents, &s3.Object{
			Key:  aws.String(key),
			Size: aws.Int64(int64(len(data))),
		})
	}

	sort.Slice(contents, func(i, j int) bool { return *contents[i].Key < *contents[j].Key })

	return &s3.ListObjectsOutput{
		Contents: contents,
		Name:     input.Bucket,
	}, nil
}

// PreloadDir seeds the store with every file in a local directory, keyed by
// file name. Package archives are expected to sit flat in the directory,
// e.g. AWS_EC2-1.4.2.zip. Returns the number of files loaded.
func (m *MemoryObjectStore) PreloadDir(bucket string, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read package directory %s: %v", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return loaded, fmt.Errorf("failed to read package %s: %v", entry.Name(), err)
		}

		m.mu.Lock()
		m.objects[objectKey(bucket, entry.Name())] = data
		m.mu.Unlock()
		loaded++
	}

	return loaded, nil
}

// LatestPackage resolves the newest published archive for an integration.
// Archives are keyed <Integration>-<version>.zip; versions compare
// numerically per dotted segment. Returns a NoSuchKeyError when the
// integration has no published archive.
func LatestPackage(store ObjectStore, bucket string, integration string) (key string, version string, err error) {
	prefix := integration + "-"

	output, err := store.ListObjects(&s3.ListObjectsInput{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return "", "", err
	}

	latest := ""
	for _, object := range output.Contents {
		name := aws.StringValue(object.Key)
		if !strings.HasSuffix(name, ".zip") {
			continue
		}

		candidate := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".zip")
		if candidate == "" {
			continue
		}

		if latest == "" || CompareVersions(candidate, latest) > 0 {
			latest = candidate
		}
	}

	if latest == "" {
		return "", "", &NoSuchKeyError{Key: prefix + "*.zip"}
	}

	return prefix + latest + ".zip", latest, nil
}

// CompareVersions orders dotted package versions numerically, falling back
// to string order for non-numeric segments. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	aSegs := strings.Split(a, ".")
	bSegs := strings.Split(b, ".")

	for i := 0; i < len(aSegs) || i < len(bSegs); i++ {
		var aSeg, bSeg string
		if i < len(aSegs) {
			aSeg = aSegs[i]
		}
		if i < len(bSegs) {
			bSeg = bSegs[i]
		}

		aNum, aErr := strconv.Atoi(aSeg)
		bNum, bErr := strconv.Atoi(bSeg)
		if aErr == nil && bErr == nil {
			if aNum != bNum {
				if aNum < bNum {
					return -1
				}
				return 1
			}
			continue
		}

		if aSeg != bSeg {
			if aSeg < bSeg {
				return -1
			}
			return 1
		}
	}

	return 0
}

// Clear removes all objects from the memory store (useful for test cleanup)
func (m *MemoryObjectStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = make(map[string][]byte)
}

// Count returns the number of objects in the memory store
func (m *MemoryObjectStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
