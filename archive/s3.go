package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config holds the settings for the S3-backed archiver. Empty fields fall
// back to the standard AWS config/credential chain.
type S3Config struct {
	Bucket string
	Region string
	// Profile selects a named shared config profile.
	Profile string
	// UsePathStyle forces path-style addressing for S3-compatible providers.
	UsePathStyle bool
}

// S3Archiver stores run records as JSON objects in an S3 bucket.
type S3Archiver struct {
	client *s3.Client
	bucket string
}

func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 archiver needs a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket}, nil
}

func (a *S3Archiver) SaveRun(ctx context.Context, rec *RunRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("archive encode: %w", err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(runKey(rec.Kind, rec.StartedAt)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive put: %w", err)
	}
	return nil
}

func (a *S3Archiver) LoadRun(ctx context.Context, kind string, startedAt time.Time) (*RunRecord, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(runKey(kind, startedAt)),
	})
	if err != nil {
		return nil, fmt.Errorf("archive get: %w", err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("archive read: %w", err)
	}
	var rec RunRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("archive decode: %w", err)
	}
	return &rec, nil
}

// HasRun reports whether a run record exists, distinguishing a missing
// object from an access error.
func (a *S3Archiver) HasRun(ctx context.Context, kind string, startedAt time.Time) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(runKey(kind, startedAt)),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}
	return false, err
}

// ListRuns returns the archived run keys for a collector kind in S3
// lexicographic order, which matches chronological order for run keys.
func (a *S3Archiver) ListRuns(ctx context.Context, kind string, max int) ([]string, error) {
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String("runs/" + kind + "/"),
	}
	if max > 0 {
		in.MaxKeys = aws.Int32(int32(max))
	}
	out, err := a.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("archive list: %w", err)
	}
	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}
