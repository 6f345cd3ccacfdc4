package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"mtglog/app/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// UploadTarget 可写的签名地址及对应的存储路径
type UploadTarget struct {
	UploadURL   string `json:"uploadUrl"`
	StoragePath string `json:"storagePath"`
}

// S3Storage 基于 S3 兼容接口的对象存储
type S3Storage struct {
	svc      *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	ttl      time.Duration
	now      func() time.Time
}

// NewS3 根据配置创建存储客户端，不会发起网络请求
func NewS3(cfg config.StorageConfig) (*S3Storage, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("创建存储会话失败: %w", err)
	}

	ttl := cfg.SignedURLTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &S3Storage{
		svc:      s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.Bucket,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// CreateUploadTarget 为视频文件生成路径并签发 PUT 地址
func (s *S3Storage) CreateUploadTarget(fileName, contentType string) (*UploadTarget, error) {
	key := VideoPath(fileName, s.now())
	req, _ := s.svc.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	url, err := req.Presign(s.ttl)
	if err != nil {
		return nil, fmt.Errorf("签发上传地址失败: %w", err)
	}
	return &UploadTarget{UploadURL: url, StoragePath: key}, nil
}

// SignedDownloadURL 为已存储的文件签发 GET 地址
func (s *S3Storage) SignedDownloadURL(storagePath string) (string, error) {
	req, _ := s.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storagePath),
	})
	url, err := req.Presign(s.ttl)
	if err != nil {
		return "", fmt.Errorf("签发下载地址失败: %w", err)
	}
	return url, nil
}

// Upload 把 body 写入指定 bucket/key
func (s *S3Storage) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("上传对象 %s/%s 失败: %w", bucket, key, err)
	}
	return nil
}
