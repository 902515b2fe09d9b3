package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/raven-rwho/rem-expenses/internal/log"
)

// ObjectPutter is the subset of the S3 client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads rendered exports to an S3 bucket.
type Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *log.Logger
}

// NewArchiver wraps an existing client.
func NewArchiver(client ObjectPutter, bucket, prefix string, logger *log.Logger) *Archiver {
	if logger == nil {
		logger = log.Default("export")
	}
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// NewS3Archiver builds an S3 client from the default AWS credential chain.
func NewS3Archiver(ctx context.Context, region, bucket, prefix string, logger *log.Logger) (*Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewArchiver(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// Key returns the object key of a document for a draft.
func (a *Archiver) Key(draftID string, doc Document) string {
	if a.prefix == "" {
		return path.Join(draftID, doc.Filename)
	}
	return path.Join(a.prefix, draftID, doc.Filename)
}

// Archive uploads doc and returns its s3:// reference.
func (a *Archiver) Archive(ctx context.Context, draftID string, doc Document) (string, error) {
	key := a.Key(draftID, doc)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc.Body),
		ContentType: aws.String(doc.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	ref := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	a.logger.InfoContext(ctx, "Export archived",
		"draft_id", draftID,
		"reference", ref,
		"size", len(doc.Body))
	return ref, nil
}
