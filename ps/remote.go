package ps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tesseradb/tessera/storage"
)

// RemoteConfig carries optional S3 settings for remote snapshot I/O.
// Zero values fall back to the ambient AWS configuration.
type RemoteConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // custom S3-compatible endpoint
}

type urlScheme string

const (
	schemeFile  urlScheme = "file"
	schemeS3    urlScheme = "s3"
	schemeHTTP  urlScheme = "http"
	schemeHTTPS urlScheme = "https"
	schemeLocal urlScheme = "local" // bare path
)

func detectScheme(path string) urlScheme {
	lower := strings.ToLower(path)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return schemeS3
	case strings.HasPrefix(lower, "https://"):
		return schemeHTTPS
	case strings.HasPrefix(lower, "http://"):
		return schemeHTTP
	case strings.HasPrefix(lower, "file://"):
		return schemeFile
	default:
		return schemeLocal
	}
}

// Export writes a snapshot to a destination URL: a local path,
// file://, or s3://bucket/key.
func Export(snap *storage.Snapshot, url string, cfg *RemoteConfig) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	w, err := openRemoteWriter(url, cfg)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return w.Close()
}

// Import reads a snapshot from a source URL: a local path, file://,
// http(s)://, or s3://bucket/key.
func Import(url string, cfg *RemoteConfig) (*storage.Snapshot, error) {
	r, err := openRemoteReader(url, cfg)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return DecodeSnapshot(r)
}

func openRemoteReader(path string, cfg *RemoteConfig) (io.ReadCloser, error) {
	switch scheme := detectScheme(path); scheme {
	case schemeLocal, schemeFile:
		return osOpen(strings.TrimPrefix(path, "file://"))
	case schemeHTTP, schemeHTTPS:
		return openHTTPReader(path)
	case schemeS3:
		return openS3Reader(path, cfg)
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s", path)
	}
}

func openRemoteWriter(path string, cfg *RemoteConfig) (io.WriteCloser, error) {
	switch scheme := detectScheme(path); scheme {
	case schemeLocal, schemeFile:
		return osCreate(strings.TrimPrefix(path, "file://"))
	case schemeHTTP, schemeHTTPS:
		return nil, fmt.Errorf("HTTP/HTTPS does not support writing")
	case schemeS3:
		return openS3Writer(path, cfg)
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s", path)
	}
}

func openHTTPReader(url string) (io.ReadCloser, error) {
	client := &http.Client{Timeout: 5 * time.Minute}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// parseS3URL splits s3://bucket/key into its parts.
func parseS3URL(url string) (bucket, key string, err error) {
	path := strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return parts[0], parts[1], nil
}

func getS3Client(ctx context.Context, cfg *RemoteConfig) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg != nil && cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg != nil && cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg != nil && cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // S3-compatible services
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

func openS3Reader(url string, cfg *RemoteConfig) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	return resp.Body, nil
}

// s3Writer buffers writes and uploads the object on Close.
type s3Writer struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buffer []byte
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("writer is closed")
	}
	w.buffer = append(w.buffer, p...)
	return len(p), nil
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   strings.NewReader(string(w.buffer)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func openS3Writer(url string, cfg *RemoteConfig) (io.WriteCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &s3Writer{ctx: ctx, client: client, bucket: bucket, key: key}, nil
}

// swappable in tests
var osOpen = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

var osCreate = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}
