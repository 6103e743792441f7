package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectConfig configures an S3-compatible snapshot location
type ObjectConfig struct {
	Endpoint  string
	Bucket    string
	Object    string
	AccessKey string
	SecretKey string
	Region    string
	Insecure  bool
}

// ObjectSnapshotter implements Snapshotter as a single object in a bucket
type ObjectSnapshotter struct {
	client *minio.Client
	cfg    ObjectConfig
}

// NewObjectSnapshotter creates a snapshotter backed by an S3-compatible store
func NewObjectSnapshotter(cfg ObjectConfig) (*ObjectSnapshotter, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	if cfg.Object == "" {
		cfg.Object = "state.json"
	}

	var creds *credentials.Credentials
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        creds,
		Secure:       !cfg.Insecure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	return &ObjectSnapshotter{client: client, cfg: cfg}, nil
}

// Load fetches and decodes the snapshot object
func (s *ObjectSnapshotter) Load(ctx context.Context) (map[string]string, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, s.cfg.Object, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("s3: get snapshot: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("s3: read snapshot: %w", err)
	}

	vars := make(map[string]string)
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("s3: decode snapshot: %w", err)
	}
	return vars, nil
}

// Save uploads the encoded snapshot, replacing the previous object
func (s *ObjectSnapshotter) Save(ctx context.Context, vars map[string]string) error {
	data, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("s3: encode snapshot: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.cfg.Bucket, s.cfg.Object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("s3: put snapshot: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	errResp := minio.ErrorResponse{}
	if errors.As(err, &errResp) {
		return errResp.StatusCode == http.StatusNotFound || errResp.Code == "NoSuchKey"
	}
	return false
}
