package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sunbeam-data/ocr-pipeline/constants"
	"github.com/sunbeam-data/ocr-pipeline/internal/common"
)

// API is the subset of the S3 service the store uses, split out so tests can
// substitute a fake.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// ObjectStore reads receipt images from the input bucket and writes result
// blobs to the output bucket.
type ObjectStore struct {
	api          API
	inputBucket  string
	outputBucket string
	logger       *slog.Logger
}

func NewObjectStore(cfg aws.Config, awsCfg common.AWSConfig, logger *slog.Logger) *ObjectStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectStore{
		api:          s3.NewFromConfig(cfg),
		inputBucket:  awsCfg.InputBucket,
		outputBucket: awsCfg.OutputBucket,
		logger:       logger,
	}
}

// NewObjectStoreWithAPI wires an explicit API implementation, for tests.
func NewObjectStoreWithAPI(api API, inputBucket, outputBucket string, logger *slog.Logger) *ObjectStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectStore{api: api, inputBucket: inputBucket, outputBucket: outputBucket, logger: logger}
}

// HealthCheck lists the input bucket, catching bucket and permission issues
// at startup.
func (s *ObjectStore) HealthCheck(ctx context.Context) error {
	_, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.inputBucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("list input bucket %s: %w", s.inputBucket, err)
	}
	return nil
}

// Exists reports whether the key is present in the input bucket.
func (s *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.inputBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	return true, nil
}

// Download fetches the object, enforcing the size cap and checking that the
// bytes match the claimed extension. OCR engines reject mislabeled uploads
// with opaque errors, so the check happens here with a clear one.
func (s *ObjectStore) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.inputBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, common.NewAppError("OBJECT_NOT_FOUND",
				fmt.Sprintf("object %s not found in %s", key, s.inputBucket), common.ErrNotFound)
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, constants.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	if int64(len(data)) > constants.MaxFileSize {
		return nil, common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("object %s exceeds %d byte limit", key, constants.MaxFileSize), common.ErrInvalidInput)
	}
	if err := ValidateContent(key, data); err != nil {
		return nil, err
	}

	s.logger.Info("downloaded object", "key", key, "bytes", len(data))
	return data, nil
}

// ListPrefix returns every supported-extension key under the prefix in the
// input bucket, following pagination.
func (s *ObjectStore) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.inputBucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list prefix %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			if constants.SupportedExt(key) {
				keys = append(keys, key)
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return keys, nil
}

// UploadJSON writes the result blob to processed/<key>.json in the output
// bucket.
func (s *ObjectStore) UploadJSON(ctx context.Context, key string, blob []byte) (string, error) {
	outKey := "processed/" + key + ".json"
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.outputBucket),
		Key:         aws.String(outKey),
		Body:        bytes.NewReader(blob),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", outKey, err)
	}
	s.logger.Info("uploaded result blob", "key", outKey, "bytes", len(blob))
	return outKey, nil
}

// Magic-byte prefixes per supported format. JPEG files always start with
// FF D8 FF regardless of the JFIF/EXIF variant.
var (
	magicPNG  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicPDF  = []byte("%PDF-")
)

// ValidateContent checks the object bytes against the extension's magic
// bytes.
func ValidateContent(key string, data []byte) error {
	ext := constants.FileExt(key)
	var ok bool
	switch ext {
	case "png":
		ok = bytes.HasPrefix(data, magicPNG)
	case "jpeg", "jpg":
		ok = bytes.HasPrefix(data, magicJPEG)
	case "pdf":
		ok = bytes.HasPrefix(data, magicPDF)
	default:
		return common.NewAppError("UNSUPPORTED_TYPE",
			fmt.Sprintf("unsupported file type %q", ext), common.ErrUnsupportedType)
	}
	if !ok {
		return common.NewAppError("CONTENT_MISMATCH",
			fmt.Sprintf("content of %s does not match its %s extension", key, ext), common.ErrInvalidInput)
	}
	return nil
}
