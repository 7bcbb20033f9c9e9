// Package storage opens instrument files and export targets by URI.
//
// Three locations are understood:
//
//	/data/run_004.dat            local path (also file:///data/run_004.dat)
//	s3://lab-archive/2024/run.dat
//	gs://lab-archive/2024/run.dat
//
// Remote clients are created lazily on first use and reused afterwards.
package storage

import (
	"context"
	stderrors "errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Scheme identifies the backing store of a Location.
type Scheme string

const (
	// SchemeFile is the local filesystem
	SchemeFile Scheme = "file"
	// SchemeS3 is Amazon S3 or a compatible store
	SchemeS3 Scheme = "s3"
	// SchemeGCS is Google Cloud Storage
	SchemeGCS Scheme = "gs"
)

const (
	defaultPartSize    = 5 * 1024 * 1024
	defaultConcurrency = 4
)

// Location is a parsed URI. For SchemeFile only Key is set and holds the
// local path.
type Location struct {
	Scheme Scheme
	Bucket string
	Key    string
}

// String renders the location back as a URI, or a plain path for local files.
func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return string(l.Scheme) + "://" + l.Bucket + "/" + l.Key
}

// Parse splits a URI into its scheme, bucket and key. Strings without a
// scheme are local paths.
func Parse(uri string) (Location, error) {
	if uri == "" {
		return Location{}, errors.New(errors.ErrorTypeValidation, "empty location")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: SchemeFile, Key: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, errors.Wrap(err, errors.ErrorTypeValidation, "invalid location").
			WithDetail("uri", uri)
	}

	switch Scheme(u.Scheme) {
	case SchemeFile:
		return Location{Scheme: SchemeFile, Key: u.Path}, nil
	case SchemeS3, SchemeGCS:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, errors.Newf(errors.ErrorTypeValidation, "%s location needs a bucket and a key", u.Scheme).
				WithDetail("uri", uri)
		}
		return Location{Scheme: Scheme(u.Scheme), Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, errors.Newf(errors.ErrorTypeCapability, "unsupported storage scheme: %s", u.Scheme).
			WithDetail("uri", uri)
	}
}

// Options configures the remote clients.
type Options struct {
	// Region for S3. Empty uses the AWS default chain.
	Region string
	// CredentialsFile for GCS. Empty uses application default credentials.
	CredentialsFile string
	// PartSize and Concurrency tune S3 multipart uploads.
	PartSize    int64
	Concurrency int
	Logger      *zap.Logger
}

// Opener resolves URIs to readers and writers. It is safe for concurrent use.
type Opener struct {
	opts Options

	mu        sync.Mutex
	s3Client  *s3.Client
	uploader  *manager.Uploader
	gcsClient *storage.Client
}

// NewOpener creates an opener. A nil opts uses defaults.
func NewOpener(opts *Options) *Opener {
	o := &Opener{}
	if opts != nil {
		o.opts = *opts
	}
	if o.opts.PartSize <= 0 {
		o.opts.PartSize = defaultPartSize
	}
	if o.opts.Concurrency <= 0 {
		o.opts.Concurrency = defaultConcurrency
	}
	return o
}

func (o *Opener) log() *zap.Logger {
	if o.opts.Logger != nil {
		return o.opts.Logger
	}
	return logger.Get()
}

var defaultOpener = NewOpener(nil)

// Open reads uri with the default opener.
func Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return defaultOpener.Open(ctx, uri)
}

// Create writes uri with the default opener.
func Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	return defaultOpener.Create(ctx, uri)
}

// Exists checks uri with the default opener.
func Exists(ctx context.Context, uri string) (bool, error) {
	return defaultOpener.Exists(ctx, uri)
}

// Open returns a reader for the object at uri.
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case SchemeS3:
		client, err := o.s3(ctx)
		if err != nil {
			return nil, err
		}
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to get S3 object").WithDetail("uri", uri)
		}
		return out.Body, nil
	case SchemeGCS:
		client, err := o.gcs(ctx)
		if err != nil {
			return nil, err
		}
		r, err := client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open GCS object").WithDetail("uri", uri)
		}
		return r, nil
	default:
		f, err := os.Open(loc.Key)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").WithDetail("path", loc.Key)
		}
		return f, nil
	}
}

// Create returns a writer for uri. Remote objects become visible when the
// writer is closed; Close reports upload failures.
func (o *Opener) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case SchemeS3:
		if _, err := o.s3(ctx); err != nil {
			return nil, err
		}
		return o.newS3Writer(ctx, loc), nil
	case SchemeGCS:
		client, err := o.gcs(ctx)
		if err != nil {
			return nil, err
		}
		w := client.Bucket(loc.Bucket).Object(loc.Key).NewWriter(ctx)
		w.ContentType = contentType(loc.Key)
		return w, nil
	default:
		if dir := filepath.Dir(loc.Key); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory").WithDetail("path", dir)
			}
		}
		f, err := os.Create(loc.Key)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create file").WithDetail("path", loc.Key)
		}
		return f, nil
	}
}

// Exists reports whether an object or file is present at uri.
func (o *Opener) Exists(ctx context.Context, uri string) (bool, error) {
	loc, err := Parse(uri)
	if err != nil {
		return false, err
	}

	switch loc.Scheme {
	case SchemeS3:
		client, err := o.s3(ctx)
		if err != nil {
			return false, err
		}
		_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
		})
		if err == nil {
			return true, nil
		}
		var notFound *s3types.NotFound
		var noSuchKey *s3types.NoSuchKey
		if stderrors.As(err, &notFound) || stderrors.As(err, &noSuchKey) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat S3 object").WithDetail("uri", uri)
	case SchemeGCS:
		client, err := o.gcs(ctx)
		if err != nil {
			return false, err
		}
		_, err = client.Bucket(loc.Bucket).Object(loc.Key).Attrs(ctx)
		if err == nil {
			return true, nil
		}
		if stderrors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat GCS object").WithDetail("uri", uri)
	default:
		_, err := os.Stat(loc.Key)
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat file").WithDetail("path", loc.Key)
	}
}

// Close releases remote clients.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcsClient != nil {
		err := o.gcsClient.Close()
		o.gcsClient = nil
		return err
	}
	return nil
}

func (o *Opener) s3(ctx context.Context) (*s3.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.s3Client != nil {
		return o.s3Client, nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if o.opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	o.s3Client = s3.NewFromConfig(cfg)
	o.uploader = manager.NewUploader(o.s3Client, func(u *manager.Uploader) {
		u.PartSize = o.opts.PartSize
		u.Concurrency = o.opts.Concurrency
	})
	o.log().Debug("S3 client initialized", zap.String("region", cfg.Region))
	return o.s3Client, nil
}

func (o *Opener) gcs(ctx context.Context) (*storage.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcsClient != nil {
		return o.gcsClient, nil
	}

	var opts []option.ClientOption
	if o.opts.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}
	o.gcsClient = client
	o.log().Debug("GCS client initialized")
	return client, nil
}

// s3Writer streams into a multipart upload through a pipe.
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (o *Opener) newS3Writer(ctx context.Context, loc Location) *s3Writer {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}

	o.mu.Lock()
	uploader := o.uploader
	o.mu.Unlock()

	go func() {
		result, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(loc.Bucket),
			Key:         aws.String(loc.Key),
			Body:        pr,
			ContentType: aws.String(contentType(loc.Key)),
		})
		if err != nil {
			_ = pr.CloseWithError(err)
			w.done <- errors.Wrap(err, errors.ErrorTypeFile, "failed to upload to S3").WithDetail("uri", loc.String())
			return
		}
		o.log().Info("object uploaded to S3", zap.String("location", result.Location))
		w.done <- nil
	}()
	return w
}

func (w *s3Writer) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

func contentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".json":
		return "application/json"
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".arrow":
		return "application/vnd.apache.arrow.file"
	case ".avro":
		return "application/avro"
	case ".gz", ".zst", ".lz4", ".sz", ".s2", ".deflate":
		return "application/octet-stream"
	default:
		return "text/plain"
	}
}
