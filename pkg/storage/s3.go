package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func init() {
	Register("s3", NewS3)
}

type s3Options struct {
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	SessionToken    string `koanf:"session_token"`
	Region          string `koanf:"region"`
	UseSSL          bool   `koanf:"use_ssl"`
	CacheTTL        string `koanf:"cache_ttl"`
}

// S3FileSystem serves s3:// URIs through any S3-compatible endpoint. Paths
// carry the bucket as their first segment ("bucket/key/parts"). The
// registered factory wraps it in a CachedFileSystem so repeated existence
// and glob probes do not hammer the object store.
type S3FileSystem struct {
	client *minio.Client
}

// NewS3 builds the cached S3 backend from credentials and fs_args. The
// cache TTL defaults to one minute and is set with the "cache_ttl"
// argument (a Go duration string).
func NewS3(cfg Config) (FileSystem, error) {
	o := s3Options{
		Endpoint: "s3.amazonaws.com",
		UseSSL:   true,
		CacheTTL: "1m",
	}
	if err := decodeBackendOptions(cfg, &o); err != nil {
		return nil, err
	}
	ttl, err := time.ParseDuration(o.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid cache_ttl %q: %w", o.CacheTTL, err)
	}

	endpoint := o.Endpoint
	useSSL := o.UseSSL
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid s3 endpoint %q: %w", endpoint, err)
		}
		endpoint = u.Host
		useSSL = u.Scheme != "http"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKeyID, o.SecretAccessKey, o.SessionToken),
		Secure: useSSL,
		Region: o.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return NewCached(&S3FileSystem{client: client}, ttl), nil
}

func decodeBackendOptions(cfg Config, target any) error {
	merged := make(map[string]any, len(cfg.Args)+len(cfg.Credentials))
	for k, v := range cfg.Args {
		merged[k] = v
	}
	for k, v := range cfg.Credentials {
		merged[k] = v
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "koanf",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build backend options decoder: %w", err)
	}
	if err := dec.Decode(merged); err != nil {
		return fmt.Errorf("invalid %s backend options: %w", cfg.Scheme, err)
	}
	return nil
}

func splitBucket(p string) (bucket, key string, err error) {
	bucket, key, _ = strings.Cut(p, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 path %q has no bucket", p)
	}
	return bucket, key, nil
}

func (fs *S3FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	bucket, key, err := splitBucket(p)
	if err != nil {
		return false, err
	}
	if key == "" {
		ok, err := fs.client.BucketExists(ctx, bucket)
		if err != nil {
			return false, fmt.Errorf("failed to check bucket %q: %w", bucket, err)
		}
		return ok, nil
	}
	_, err = fs.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return false, nil
	}
	return false, fmt.Errorf("failed to stat s3://%s: %w", p, err)
}

func (fs *S3FileSystem) Glob(ctx context.Context, pattern string) ([]string, error) {
	bucket, keyPattern, err := splitBucket(pattern)
	if err != nil {
		return nil, err
	}
	if strings.ContainsAny(bucket, "*?[") {
		return nil, fmt.Errorf("glob pattern %q must not have wildcards in the bucket segment", pattern)
	}

	prefix := keyPattern
	if i := strings.IndexAny(keyPattern, "*?["); i >= 0 {
		prefix = keyPattern[:i]
	}
	var matches []string
	for obj := range fs.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list s3://%s: %w", pattern, obj.Err)
		}
		full := bucket + "/" + obj.Key
		ok, err := path.Match(pattern, full)
		if err != nil {
			return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
		}
		if ok {
			matches = append(matches, full)
		}
	}
	return matches, nil
}

func (fs *S3FileSystem) Open(ctx context.Context, p string, opts OpenOptions) (File, error) {
	bucket, key, err := splitBucket(p)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("s3 path %q has no object key", p)
	}
	switch opts.Mode {
	case ModeWrite:
		return &s3WriteFile{fs: fs, ctx: ctx, bucket: bucket, key: key, path: p}, nil
	case ModeRead, "":
		info, err := fs.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to stat s3://%s: %w", p, err)
		}
		obj, err := fs.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to open s3://%s: %w", p, err)
		}
		return &s3ReadFile{obj: obj, size: info.Size, path: p}, nil
	default:
		return nil, fmt.Errorf("unsupported open mode %q", opts.Mode)
	}
}

func (fs *S3FileSystem) InvalidateCache(path string) {}

// s3ReadFile wraps a minio object handle. Size and ReadAt let
// random-access codecs skip buffering the whole object.
type s3ReadFile struct {
	obj  *minio.Object
	size int64
	path string
}

func (f *s3ReadFile) Read(p []byte) (int, error) { return f.obj.Read(p) }

func (f *s3ReadFile) ReadAt(p []byte, off int64) (int, error) { return f.obj.ReadAt(p, off) }

func (f *s3ReadFile) Seek(offset int64, whence int) (int64, error) { return f.obj.Seek(offset, whence) }

func (f *s3ReadFile) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("file %q is opened read-only", f.path)
}

func (f *s3ReadFile) Close() error { return f.obj.Close() }

func (f *s3ReadFile) Name() string { return f.path }

func (f *s3ReadFile) Size() int64 { return f.size }

// s3WriteFile buffers writes and uploads on Close, using the context the
// handle was opened with.
type s3WriteFile struct {
	fs     *S3FileSystem
	ctx    context.Context
	bucket string
	key    string
	path   string
	buf    bytes.Buffer
	closed bool
}

func (f *s3WriteFile) Read(p []byte) (int, error) {
	return 0, fmt.Errorf("file %q is opened write-only", f.path)
}

func (f *s3WriteFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("file %q is already closed", f.path)
	}
	return f.buf.Write(p)
}

func (f *s3WriteFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	_, err := f.fs.client.PutObject(f.ctx, f.bucket, f.key, bytes.NewReader(f.buf.Bytes()), int64(f.buf.Len()), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s: %w", f.path, err)
	}
	return nil
}

func (f *s3WriteFile) Name() string { return f.path }
