package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// StorageError wraps a failure talking to the storage provider.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PresignedUpload is everything a caller needs to PUT one object:
// the short-lived signed URL, the chosen key and its eventual public URL.
type PresignedUpload struct {
	URL       string
	Key       string
	PublicURL string
	ExpiresAt time.Time
}

const presignTTL = time.Hour

type Client struct {
	s3Client  *s3.Client
	presigner *s3.PresignClient
	httpc     *http.Client
	bucket    string
	region    string
}

func NewClient(ctx context.Context, region, bucket, accessKey, secretKey, endpoint string) (*Client, error) {
	var cfg aws.Config
	var err error

	if accessKey != "" && secretKey != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		)
	} else if os.Getenv("ECS_CONTAINER_METADATA_URI_V4") != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	} else {
		err = fmt.Errorf("no AWS credentials provided")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
		httpc:     &http.Client{Timeout: 5 * time.Minute},
		bucket:    bucket,
		region:    region,
	}, nil
}

// validExtensions is the upload allow-list. Anything else is
// stored with a generic binary extension rather than rejected here; kind
// and MIME validation happens before staging.
var validExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
	"svg": true, "bmp": true, "ico": true,
	"mp4": true, "avi": true, "mov": true, "wmv": true, "flv": true,
	"webm": true, "mkv": true, "m4v": true,
	"pdf": true, "doc": true, "docx": true, "txt": true, "rtf": true,
	"zip": true, "rar": true, "7z": true, "tar": true, "gz": true,
}

// FileExtension returns the lower-cased extension of fileName when it is
// on the allow-list, "bin" otherwise.
func FileExtension(fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		return "bin"
	}
	ext = strings.ToLower(ext)
	if !validExtensions[ext] {
		return "bin"
	}
	return ext
}

// ObjectKey builds a fresh key under folder for fileName.
func ObjectKey(folder, fileName string) string {
	randomID := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s/%s.%s", folder, randomID, FileExtension(fileName))
}

// PresignPut issues a signed PUT URL, valid for one hour, for a freshly
// generated key under folder.
func (c *Client) PresignPut(ctx context.Context, fileName, contentType, folder string) (*PresignedUpload, error) {
	key := ObjectKey(folder, fileName)

	request, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-name": fileName,
			"uploaded-at":   time.Now().UTC().Format(time.RFC3339),
		},
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignTTL
	})
	if err != nil {
		return nil, &StorageError{Op: "presign", Err: err}
	}

	return &PresignedUpload{
		URL:       request.URL,
		Key:       key,
		PublicURL: c.PublicURL(key),
		ExpiresAt: time.Now().Add(presignTTL),
	}, nil
}

// UploadViaPresigned performs the binary PUT against a signed URL. A single
// atomic request per object: no retry, no checksum, no resumption.
func (c *Client) UploadViaPresigned(ctx context.Context, signedURL, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, bytes.NewReader(body))
	if err != nil {
		return &StorageError{Op: "put", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &StorageError{Op: "put", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StorageError{Op: "put", Err: fmt.Errorf("upload failed with status: %d", resp.StatusCode)}
	}
	return nil
}

// Delete removes an object, best-effort. Callers log the false case and
// move on; nothing in the staging flow treats it as fatal.
func (c *Client) Delete(ctx context.Context, key string) bool {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

// PublicURL derives the durable URL from the bucket/region/key convention.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}
