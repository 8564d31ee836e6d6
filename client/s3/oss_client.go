package s3

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

var (
	DocumentBucket *oss.Bucket

	GetObjectFunc     func(string, context.Context, ...oss.Option) (io.ReadCloser, error)
	PutObjectFunc     func(string, io.Reader, context.Context, ...oss.Option) error
	DeleteObjectFunc  func(string, context.Context, ...oss.Option) error
	IsObjectExistFunc func(string, context.Context, ...oss.Option) (bool, error)
	GetObjectMetaFunc func(string, context.Context, ...oss.Option) (http.Header, error)
	SignURLFunc       func(string, int64, context.Context) (string, error)
)

func Bootstrap() {
	var err error
	DocumentBucket, err = BuildBucketFromEnv()
	if err != nil {
		panic(err)
	}

	GetObjectFunc = GetObject
	PutObjectFunc = PutObject
	DeleteObjectFunc = DeleteObject
	IsObjectExistFunc = IsObjectExist
	GetObjectMetaFunc = GetObjectMeta
	SignURLFunc = SignURL
}

func BuildBucketFromEnv() (*oss.Bucket, error) {
	endpoint := os.ExpandEnv(os.Getenv("OSS_ENDPOINT"))
	if endpoint == "" {
		endpoint = "dummy"
	}
	accessKey := os.Getenv("OSS_ACCESS_KEY")
	secretKey := os.Getenv("OSS_SECRET_KEY")
	bucket := os.Getenv("OSS_BUCKET")
	if bucket == "" {
		bucket = "hirehall"
	}
	return BuildBucket(endpoint, accessKey, secretKey, bucket)
}

func BuildBucket(endpoint, accesskey, secretKey, bucketName string) (*oss.Bucket, error) {
	// endpoint http://oss-cn-hangzhou.aliyuncs.com
	cli, err := oss.New(endpoint, accesskey, secretKey, oss.HTTPClient(nil))
	if err != nil {
		return nil, err
	}

	bucket, err := cli.Bucket(bucketName)
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

func startChildSpan(operation, key string, ctx context.Context) *opentracing.Span {
	if ctx == nil {
		return nil
	}
	parentSpan := opentracing.SpanFromContext(ctx)
	if parentSpan == nil {
		return nil
	}
	sp := parentSpan.Tracer().StartSpan(operation, opentracing.ChildOf(parentSpan.Context()))
	sp.SetTag("object-key", key)
	return &sp
}

func GetObject(key string, ctx context.Context, opts ...oss.Option) (io.ReadCloser, error) {
	childSpan := startChildSpan("get-object", key, ctx)
	if childSpan != nil {
		defer (*childSpan).Finish()
	}

	r, err := DocumentBucket.GetObject(key, opts...)
	if childSpan != nil {
		ext.Error.Set(*childSpan, err != nil)
	}
	return r, err
}

func PutObject(key string, r io.Reader, ctx context.Context, opts ...oss.Option) error {
	childSpan := startChildSpan("put-object", key, ctx)
	if childSpan != nil {
		defer (*childSpan).Finish()
	}

	err := DocumentBucket.PutObject(key, r, opts...)
	if childSpan != nil {
		ext.Error.Set(*childSpan, err != nil)
	}
	return err
}

func DeleteObject(key string, ctx context.Context, opts ...oss.Option) error {
	childSpan := startChildSpan("delete-object", key, ctx)
	if childSpan != nil {
		defer (*childSpan).Finish()
	}

	err := DocumentBucket.DeleteObject(key, opts...)
	if childSpan != nil {
		ext.Error.Set(*childSpan, err != nil)
	}
	return err
}

func IsObjectExist(key string, ctx context.Context, opts ...oss.Option) (bool, error) {
	childSpan := startChildSpan("head-object", key, ctx)
	if childSpan != nil {
		defer (*childSpan).Finish()
	}

	found, err := DocumentBucket.IsObjectExist(key, opts...)
	if childSpan != nil {
		ext.Error.Set(*childSpan, err != nil)
	}
	return found, err
}

func GetObjectMeta(key string, ctx context.Context, opts ...oss.Option) (http.Header, error) {
	childSpan := startChildSpan("get-object-meta", key, ctx)
	if childSpan != nil {
		defer (*childSpan).Finish()
	}

	header, err := DocumentBucket.GetObjectMeta(key, opts...)
	if childSpan != nil {
		ext.Error.Set(*childSpan, err != nil)
	}
	return header, err
}

// SignURL issues a time-limited GET url for a stored object.
func SignURL(key string, expiredInSec int64, ctx context.Context) (string, error) {
	childSpan := startChildSpan("sign-url", key, ctx)
	if childSpan != nil {
		defer (*childSpan).Finish()
	}

	url, err := DocumentBucket.SignURL(key, oss.HTTPGet, expiredInSec)
	if childSpan != nil {
		ext.Error.Set(*childSpan, err != nil)
	}
	return url, err
}
