package service

import (
	"mtglog/app/logger"
	"mtglog/app/storage"
)

// UploadURLRequest 申请上传地址
type UploadURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// UploadURLService 签发视频上传地址
type UploadURLService struct {
	log     *logger.Logger
	storage VideoStorage
}

// NewUploadURLService 创建服务，videos 为 nil 表示存储未配置
func NewUploadURLService(log *logger.Logger, videos VideoStorage) *UploadURLService {
	return &UploadURLService{log: log, storage: videos}
}

// Create 只为 .mp4/video/mp4 签发地址，其余返回 400
func (s *UploadURLService) Create(req UploadURLRequest) (*storage.UploadTarget, error) {
	if req.FileName == "" || req.ContentType == "" {
		return nil, badRequest("fileName and contentType are required", "")
	}
	if !storage.Accepted(req.FileName, req.ContentType) {
		return nil, badRequest("Only .mp4 files (video/mp4) are accepted", req.ContentType)
	}
	if s.storage == nil {
		return nil, misconfigured("storage")
	}

	target, err := s.storage.CreateUploadTarget(req.FileName, req.ContentType)
	if err != nil {
		return nil, internal("Failed to create upload URL", err)
	}
	s.log.Infof("已签发上传地址: %s", target.StoragePath)
	return target, nil
}
