// Package download stores files received from the backend to a blob bucket.
//
// The bucket is opened by URL, supported schemes are "file://" and "mem://", for example "file:///tmp/downloads".
package download

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

// DefaultFilename is used if the Content-Disposition header has no filename.
const DefaultFilename = "download"

// Sink writes downloaded files to the bucket.
type Sink struct {
	bucket *blob.Bucket
	prefix string
	logger *zap.Logger
}

type Option func(*Sink)

// WithPrefix sets a key prefix of all stored files.
func WithPrefix(v string) Option {
	return func(s *Sink) {
		s.prefix = v
	}
}

func WithLogger(v *zap.Logger) Option {
	return func(s *Sink) {
		s.logger = v
	}
}

// Open opens the bucket by the URL and creates the Sink.
func Open(ctx context.Context, bucketURL string, opts ...Option) (*Sink, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf(`cannot open download bucket "%s": %w`, bucketURL, err)
	}
	return NewSink(bucket, opts...), nil
}

// NewSink creates the Sink for an opened bucket.
func NewSink(bucket *blob.Bucket, opts ...Option) *Sink {
	s := &Sink{bucket: bucket, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store writes the file and returns its key.
// Each file gets an unique directory, so files with the same name are not overwritten.
func (s *Sink) Store(ctx context.Context, filename, contentType string, body []byte) (key string, err error) {
	key = path.Join(s.prefix, uuid.NewString(), sanitize(filename))

	opts := &blob.WriterOptions{ContentType: contentType}
	if opts.ContentType == "" {
		opts.ContentType = "application/octet-stream"
	}
	if err := s.bucket.WriteAll(ctx, key, body, opts); err != nil {
		return "", fmt.Errorf(`cannot write file "%s": %w`, key, err)
	}

	s.logger.Info("file downloaded", zap.String("file.key", key), zap.Int("file.size", len(body)))
	return key, nil
}

// Read returns content of the stored file.
func (s *Sink) Read(ctx context.Context, key string) ([]byte, error) {
	return s.bucket.ReadAll(ctx, key)
}

// Close closes the bucket.
func (s *Sink) Close() error {
	return s.bucket.Close()
}

// Filename returns the filename from the Content-Disposition header value.
func Filename(contentDisposition string) string {
	if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}
	// Fallback for non-standard values, take everything after "filename="
	if _, after, found := strings.Cut(contentDisposition, "filename="); found {
		if name := strings.Trim(strings.TrimSpace(after), `"`); name != "" {
			return name
		}
	}
	return DefaultFilename
}

func sanitize(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return DefaultFilename
	}
	return name
}
