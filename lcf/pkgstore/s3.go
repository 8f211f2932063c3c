// Copyright 2025 StrongCodr. All rights reserved.
// Use of this source code is governed by an Apache 2.0 license
// that can be found in the LICENSE file.

package pkgstore

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"golang.org/x/net/http2"
)

// S3Config points the catalog at an S3-compatible package store.
type S3Config struct {
	Host      string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Session builds an S3 client with HTTP/2 support for connection
// multiplexing, so concurrent package fetches share a TCP connection.
// Local package stores run on self-signed certificates, so verification
// is skipped.
func NewS3Session(config S3Config) (*s3.S3, error) {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
			ClientSessionCache: tls.NewLRUClientSessionCache(256),
			NextProtos:         []string{"h2", "http/1.1"},
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     120 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		slog.Warn("Failed to configure HTTP/2", "error", err)
	}

	client := &http.Client{
		Transport: tr,
		Timeout:   120 * time.Second,
	}

	sess, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(config.Host),
		S3ForcePathStyle: aws.Bool(true),
		Region:           aws.String(config.Region),
		HTTPClient:       client,
		Credentials:      credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
	})
	if err != nil {
		slog.Error("Error creating session", "error", err)
		return nil, err
	}

	return s3.New(sess), nil
}
