package keystore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/hrkeeper/internal/cryptox"
)

// ObjectClient is the subset of *s3.Client the store needs.
type ObjectClient interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config locates the sealed key object. Passphrase seals the key at rest.
type S3Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Bucket       string
	ObjectKey    string
	Passphrase   string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Client builds an S3 client for cfg with static credentials and a
// path-style endpoint, which is what MinIO expects.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// S3Store keeps the signing key in an object sealed with a passphrase, so
// sessions survive restarts. The key is read once at construction.
type S3Store struct {
	key []byte
}

// NewS3Store loads the key object, or generates and uploads a new key when
// the object does not exist yet.
func NewS3Store(ctx context.Context, client ObjectClient, cfg S3Config, gen cryptox.TokenGenerator) (*S3Store, error) {
	if cfg.Bucket == "" || cfg.ObjectKey == "" {
		return nil, errors.New("keystore: bucket and object key are required")
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(cfg.ObjectKey),
	})
	switch {
	case err == nil:
		defer out.Body.Close()
		sealed, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, fmt.Errorf("keystore: read key object: %w", err)
		}
		key, err := cryptox.OpenWithPassphrase(sealed, []byte(cfg.Passphrase))
		if err != nil {
			return nil, fmt.Errorf("keystore: open key object: %w", err)
		}
		return &S3Store{key: key}, nil

	case isNotFound(err):
		k, err := gen.GenerateToken(KeyLength)
		if err != nil {
			return nil, err
		}
		sealed, err := cryptox.SealWithPassphrase([]byte(k), []byte(cfg.Passphrase))
		if err != nil {
			return nil, fmt.Errorf("keystore: seal key: %w", err)
		}
		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(cfg.Bucket),
			Key:    aws.String(cfg.ObjectKey),
			Body:   bytes.NewReader(sealed),
		})
		if err != nil {
			return nil, fmt.Errorf("keystore: store key object: %w", err)
		}
		return &S3Store{key: []byte(k)}, nil

	default:
		return nil, fmt.Errorf("keystore: get key object: %w", err)
	}
}

func (s *S3Store) SecretKey() []byte {
	return append([]byte(nil), s.key...)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
