// Package storage keeps rendered estimate reports in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

const (
	markdownContentType = "text/markdown; charset=utf-8"
	reportsPrefix       = "reports/"
	keyTimeLayout       = "20060102T150405Z"
	documentMetaKey     = "document-id"
)

type S3ClientConfig struct {
	// Endpoint is set for MinIO and other S3-compatible stores; empty means AWS.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
	URLExpiry       time.Duration
}

// S3Client stores estimate reports under reports/<document>/.
type S3Client struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	urlExpiry time.Duration
}

// ReportObject describes one stored report.
type ReportObject struct {
	Key          string    `json:"key"`
	DocumentID   string    `json:"document_id"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*S3Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &S3Client{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		urlExpiry: expiry,
	}, nil
}

// ReportKey is the object key of a document's estimate report rendered at at.
// Keys of one document sort by render time.
func ReportKey(documentID string, at time.Time) string {
	return fmt.Sprintf("%s%s/estimate-%s.md", reportsPrefix, strings.TrimSpace(documentID), at.UTC().Format(keyTimeLayout))
}

// DocumentFromKey returns the document a report key belongs to.
func DocumentFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, reportsPrefix)
	if !ok {
		return "", false
	}
	id, file, ok := strings.Cut(rest, "/")
	if !ok || id == "" || !strings.HasPrefix(file, "estimate-") {
		return "", false
	}
	return id, true
}

// PutReport uploads a markdown report and returns its key.
func (c *S3Client) PutReport(ctx context.Context, key string, body []byte) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(markdownContentType),
	}
	if id, ok := DocumentFromKey(key); ok {
		input.Metadata = map[string]string{documentMetaKey: id}
	}
	if _, err := c.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("%w: upload report %s: %w", domain.ErrStorageOperationFail, key, err)
	}
	return key, nil
}

// GetReport downloads a stored report. A missing key yields domain.ErrReportNotFound.
func (c *S3Client) GetReport(ctx context.Context, key string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %s", domain.ErrReportNotFound, key)
		}
		return nil, fmt.Errorf("%w: get report %s: %w", domain.ErrStorageOperationFail, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read report %s: %w", domain.ErrStorageOperationFail, key, err)
	}
	return data, nil
}

// ListReports returns the reports stored for documentID, newest first.
func (c *S3Client) ListReports(ctx context.Context, documentID string) ([]ReportObject, error) {
	prefix := reportsPrefix + strings.TrimSpace(documentID) + "/"
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	var reports []ReportObject
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list reports for %s: %w", domain.ErrStorageOperationFail, documentID, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			id, ok := DocumentFromKey(key)
			if !ok {
				continue
			}
			reports = append(reports, ReportObject{
				Key:          key,
				DocumentID:   id,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	sortNewestFirst(reports)
	return reports, nil
}

// LatestReportKey returns the key of the most recent report of documentID.
func (c *S3Client) LatestReportKey(ctx context.Context, documentID string) (string, error) {
	reports, err := c.ListReports(ctx, documentID)
	if err != nil {
		return "", err
	}
	if len(reports) == 0 {
		return "", fmt.Errorf("%w: no reports for document %s", domain.ErrReportNotFound, documentID)
	}
	return reports[0].Key, nil
}

// sortNewestFirst orders by key, which embeds the render time.
func sortNewestFirst(reports []ReportObject) {
	sort.Slice(reports, func(i, j int) bool { return reports[i].Key > reports[j].Key })
}

// GenerateDownloadURL presigns a GET for key.
func (c *S3Client) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, nil
}

// EnsureBucket creates the bucket if HeadBucket cannot see it.
func (c *S3Client) EnsureBucket(ctx context.Context) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err == nil {
		return nil
	}
	_, err := c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}
