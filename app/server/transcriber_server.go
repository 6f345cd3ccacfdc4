package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mtglog/app/config"
	"mtglog/app/handler"
	"mtglog/app/logger"
	"mtglog/app/middleware"
	"mtglog/app/service"
	"mtglog/app/storage"
	"mtglog/app/utils/audiohelper"
	"mtglog/app/utils/pipelinehelper"
	"mtglog/app/utils/speechhelper"

	"github.com/gin-gonic/gin"
)

// TranscriberServer 转写 worker，独立于流水线服务部署
type TranscriberServer struct {
	config *config.Config
	logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server
	stage  *pipelinehelper.Client
	bg     *service.Background
}

// NewTranscriberServer 创建转写 worker。识别服务或存储未配置时仍可启动，请求返回 500
func NewTranscriberServer(cfg *config.Config, log *logger.Logger) *TranscriberServer {
	var recognizer speechhelper.Recognizer
	if r, err := speechhelper.New(cfg.Speech); err != nil {
		log.Errorf("语音识别未就绪: %v", err)
	} else {
		recognizer = r
	}

	var objects service.ObjectUploader
	if s3, err := storage.NewS3(cfg.Storage); err != nil {
		log.Errorf("对象存储未就绪: %v", err)
	} else {
		objects = s3
	}

	stage := pipelinehelper.New(cfg.Auth.WebhookSecret, cfg.Pipeline.HandoffTimeout)
	// 作业本身没有超时，由各外部调用自己的超时约束
	bg := service.NewBackground(log, 0)
	svc := service.NewTranscriberService(cfg, log, audiohelper.New(cfg.Transcriber.FFmpeg), objects, recognizer, stage, bg)

	return newTranscriberServer(cfg, log, handler.NewTranscriberHandler(log, svc), stage, bg)
}

func newTranscriberServer(cfg *config.Config, log *logger.Logger, h *handler.TranscriberHandler, stage *pipelinehelper.Client, bg *service.Background) *TranscriberServer {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))

	router.GET("/", h.Health)
	router.POST("/transcribe", middleware.BearerAuth(cfg.Auth.WebhookSecret, log), h.Transcribe)

	return &TranscriberServer{
		config: cfg,
		logger: log,
		gin:    router,
		stage:  stage,
		bg:     bg,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.TranscriberPort),
			Handler:           router,
			ReadHeaderTimeout: 30 * time.Second,
		},
	}
}

// Handler 返回路由，供测试使用
func (s *TranscriberServer) Handler() http.Handler {
	return s.gin
}

// Start 启动 worker，阻塞直到关闭
func (s *TranscriberServer) Start() error {
	s.logger.Infof("启动转写服务，端口: %s", s.config.Server.TranscriberPort)
	return s.http.ListenAndServe()
}

// Stop 停止接收请求并等待进行中的作业
func (s *TranscriberServer) Stop(ctx context.Context) error {
	s.logger.Info("正在停止转写服务...")
	err := s.http.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warnf("等待转写作业超时")
	}

	if s.stage != nil {
		s.stage.Close()
	}
	return err
}
