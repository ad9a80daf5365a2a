package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/filex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	putErr  error
	getErr  error
	lastPut *s3.PutObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastPut = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(v)),
		ContentLength: aws.Int64(int64(len(v))),
	}, nil
}

func withFakeS3(t *testing.T, f *fakeS3) {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" {
			t.Fatalf("BaseEndpoint not applied")
		}
		if !opts.UsePathStyle {
			t.Fatalf("path style not applied")
		}
		return f
	}
}

func newS3(t *testing.T, f *fakeS3) *S3Store {
	t.Helper()
	withFakeS3(t, f)
	s, err := NewS3Store(context.Background(), S3Config{
		Bucket:       "media",
		Region:       "us-east-1",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	return s
}

func TestNewS3Store_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"})
	require.Error(t, err)
}

func TestS3Store_PutOpen(t *testing.T) {
	f := &fakeS3{objects: map[string]string{}}
	s := newS3(t, f)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.png", strings.NewReader("bytes")))
	require.NotNil(t, f.lastPut)
	assert.Equal(t, "media", *f.lastPut.Bucket)
	assert.Equal(t, "*", *f.lastPut.IfNoneMatch)
	assert.Equal(t, "image/png", *f.lastPut.ContentType)

	obj, err := s.Open(ctx, "a.png")
	require.NoError(t, err)
	defer obj.Body.Close()
	b, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "bytes", string(b))
	assert.Equal(t, int64(5), obj.Size)
	assert.Equal(t, "image/png", obj.ContentType)
}

func TestS3Store_PutNonSeekable(t *testing.T) {
	f := &fakeS3{objects: map[string]string{}}
	s := newS3(t, f)

	r := io.MultiReader(strings.NewReader("ab"), strings.NewReader("cd"))
	require.NoError(t, s.Put(context.Background(), "x.jpg", r))
	assert.Equal(t, "abcd", f.objects["x.jpg"])
}

func TestS3Store_PutExists(t *testing.T) {
	f := &fakeS3{objects: map[string]string{}, putErr: &smithy.GenericAPIError{Code: "PreconditionFailed"}}
	s := newS3(t, f)

	err := s.Put(context.Background(), "a.png", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrExists)
}

func TestS3Store_PutError(t *testing.T) {
	f := &fakeS3{objects: map[string]string{}, putErr: errors.New("down")}
	s := newS3(t, f)

	err := s.Put(context.Background(), "a.png", strings.NewReader("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExists)
}

func TestS3Store_OpenMissing(t *testing.T) {
	s := newS3(t, &fakeS3{objects: map[string]string{}})
	_, err := s.Open(context.Background(), "nope.png")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Store_OpenError(t *testing.T) {
	s := newS3(t, &fakeS3{objects: map[string]string{}, getErr: errors.New("down")})
	_, err := s.Open(context.Background(), "a.png")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Store_RejectsTraversal(t *testing.T) {
	s := newS3(t, &fakeS3{objects: map[string]string{}})
	_, err := s.Open(context.Background(), "../../etc/passwd")
	require.ErrorIs(t, err, filex.ErrOutsideRoot)
	err = s.Put(context.Background(), "/abs.png", strings.NewReader("x"))
	require.ErrorIs(t, err, filex.ErrOutsideRoot)
}
