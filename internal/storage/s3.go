package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3Storage struct {
	client *s3.Client
	config S3Config
}

type S3Config struct {
	Bucket string
	// Prefix scopes every key, e.g. "screenshots/reference".
	Prefix string
}

func NewS3Storage(ctx context.Context, s S3Config) (Storage, error) {
	c, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s3Client := s3.NewFromConfig(c, func(o *s3.Options) {
		if s3EndpointUrl, ok := os.LookupEnv("S3_ENDPOINT_URL"); ok {
			o.BaseEndpoint = aws.String(s3EndpointUrl)
		}
		o.UsePathStyle = true
	})

	s.Prefix = strings.Trim(s.Prefix, "/")

	return &s3Storage{
		client: s3Client,
		config: s,
	}, nil
}

func (s *s3Storage) objectKey(key string) string {
	key = strings.TrimPrefix(key, fmt.Sprintf("s3://%s/", s.config.Bucket))
	if s.config.Prefix == "" || strings.HasPrefix(key, s.config.Prefix+"/") {
		return key
	}
	return path.Join(s.config.Prefix, key)
}

func (s *s3Storage) Put(ctx context.Context, key string, data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	objectKey := s.objectKey(key)

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, objectKey), nil
}

func (s *s3Storage) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("failed to download %s from S3: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	var buffer bytes.Buffer
	_, err = buffer.ReadFrom(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}

	return buffer.Bytes(), nil
}

func (s *s3Storage) List(ctx context.Context) ([]string, error) {
	objects, err := s.listObjects(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		key := aws.ToString(o.Key)
		if s.config.Prefix != "" {
			key = strings.TrimPrefix(key, s.config.Prefix+"/")
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Clear deletes every object under the configured prefix.
func (s *s3Storage) Clear(ctx context.Context) error {
	objects, err := s.listObjects(ctx)
	if err != nil {
		return err
	}

	// DeleteObjects accepts at most 1000 keys per request.
	for start := 0; start < len(objects); start += 1000 {
		end := min(start+1000, len(objects))
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, o := range objects[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: o.Key})
		}
		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.config.Bucket),
			Delete: &types.Delete{
				Objects: ids,
				Quiet:   aws.Bool(true),
			},
		}); err != nil {
			return fmt.Errorf("failed to delete S3 objects: %w", err)
		}
	}
	return nil
}

func (s *s3Storage) listObjects(ctx context.Context) ([]types.Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
	}
	if s.config.Prefix != "" {
		input.Prefix = aws.String(s.config.Prefix + "/")
	}

	var objects []types.Object
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		objects = append(objects, page.Contents...)
	}
	return objects, nil
}
