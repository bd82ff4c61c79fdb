package files

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/baaskit/internal/apierror"
	"github.com/dmitrijs2005/baaskit/internal/config"
)

func stubS3(t *testing.T) (gotPut **s3.PutObjectInput, putErr *error) {
	t.Helper()
	origLoad, origNew, origPut, origPresign, origID := loadDefaultAWSConfig, newS3ClientFromConfig, putObject, presignGetObject, newObjectID
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, putObject, presignGetObject, newObjectID = origLoad, origNew, origPut, origPresign, origID
	})

	var in *s3.PutObjectInput
	var perr error
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		return aws.Config{Region: lo.Region}, nil
	}
	putObject = func(_ *s3.Client, _ context.Context, i *s3.PutObjectInput) error {
		in = i
		return perr
	}
	presignGetObject = func(_ *s3.Client, _ context.Context, i *s3.GetObjectInput) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "http://minio:9000/" + *i.Bucket + "/" + *i.Key + "?X-Amz-Signature=abc"}, nil
	}
	newObjectID = func() string { return "0000-id" }
	return &in, &perr
}

func TestS3FileController_SaveFile(t *testing.T) {
	gotPut, _ := stubS3(t)
	dir := writeLocal(t, "photo.png", "PNG")

	cfg := &config.Config{S3Bucket: "files", S3Region: "eu-central-1", S3Endpoint: "http://minio:9000", S3User: "u", S3Password: "p"}
	c, err := NewS3FileController(context.Background(), cfg, PathChooser{Dir: dir})
	require.NoError(t, err)

	saved, err := c.SaveFile(context.Background(), "photo.png")
	require.NoError(t, err)

	assert.Equal(t, "0000-id_photo.png", saved.Name)
	assert.Equal(t, "http://minio:9000/files/0000-id_photo.png?X-Amz-Signature=abc", saved.URL)

	in := *gotPut
	require.NotNil(t, in)
	assert.Equal(t, "files", *in.Bucket)
	assert.Equal(t, "0000-id_photo.png", *in.Key)
	assert.Equal(t, "image/png", aws.ToString(in.ContentType))
	body, err := io.ReadAll(in.Body)
	require.NoError(t, err)
	assert.Equal(t, "PNG", string(body))
}

func TestS3FileController_PutError(t *testing.T) {
	_, putErr := stubS3(t)
	*putErr = errors.New("access denied")
	dir := writeLocal(t, "a.txt", "x")

	c, err := NewS3FileController(context.Background(), &config.Config{S3Region: "eu-central-1"}, PathChooser{Dir: dir})
	require.NoError(t, err)

	_, err = c.SaveFile(context.Background(), "a.txt")
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.FileSaveError, apiErr.Code)
	assert.Contains(t, apiErr.Message, "access denied")
}

func TestNewS3FileController_LoadError(t *testing.T) {
	stubS3(t)
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3FileController(context.Background(), &config.Config{}, PathChooser{})
	require.ErrorContains(t, err, "no config")
}
