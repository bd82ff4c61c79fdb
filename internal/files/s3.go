package files

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/baaskit/internal/apierror"
	"github.com/dmitrijs2005/baaskit/internal/config"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
)

const urlExpiry = 24 * time.Hour

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}

	presignGetObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput) (*v4.PresignedHTTPRequest, error) {
		return s3.NewPresignClient(c).PresignGetObject(ctx, in, s3.WithPresignExpires(urlExpiry))
	}

	newObjectID = func() string { return uuid.NewString() }
)

// S3FileController stores chosen content in an S3 bucket under
// "<uuid>_<name>" and hands out a presigned download URL.
type S3FileController struct {
	bucket  string
	client  *s3.Client
	chooser Chooser
}

func NewS3FileController(ctx context.Context, cfg *config.Config, chooser Chooser) (*S3FileController, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3User != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3User, cfg.S3Password, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3FileController{bucket: cfg.S3Bucket, client: client, chooser: chooser}, nil
}

func (c *S3FileController) SaveFile(ctx context.Context, name string) (*controllers.SavedFile, error) {
	if !ValidName(name) {
		return nil, apierror.New(apierror.InvalidFileName, "Filename contains invalid characters.")
	}

	content, err := c.chooser.Choose(ctx, name)
	if err != nil {
		return nil, apierror.New(apierror.FileSaveError, err.Error())
	}
	defer content.Close()

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, apierror.New(apierror.FileSaveError, err.Error())
	}

	key := newObjectID() + "_" + name
	in := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		in.ContentType = aws.String(ct)
	}
	if err := putObject(c.client, ctx, in); err != nil {
		return nil, apierror.New(apierror.FileSaveError, err.Error())
	}

	req, err := presignGetObject(c.client, ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, apierror.New(apierror.FileSaveError, err.Error())
	}
	return &controllers.SavedFile{Name: key, URL: req.URL}, nil
}
