package server

import (
	"context"
	"io"
	"net/http"

	"mtglog/app/auth"
	"mtglog/app/config"
	"mtglog/app/database"
	"mtglog/app/handler"
	"mtglog/app/logger"
	"mtglog/app/middleware"
	"mtglog/app/service"
	"mtglog/app/storage"
	"mtglog/app/store"
	"mtglog/app/utils/llmhelper"
	"mtglog/app/utils/notionhelper"
	"mtglog/app/utils/pipelinehelper"
	"mtglog/app/utils/retry"
	"mtglog/app/utils/slackhelper"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps 外部服务客户端，未配置的为 nil
type Deps struct {
	Slack  service.SlackFiles
	Videos service.VideoStorage
	Stage  service.StagePoster
	Worker service.StagePoster
	LLM    service.TextGenerator
	Notion service.PageCreator

	closers []io.Closer
}

// DepsFromConfig 按配置创建客户端，不发起网络请求
func DepsFromConfig(cfg *config.Config, log *logger.Logger) Deps {
	stage := pipelinehelper.New(cfg.Auth.WebhookSecret, cfg.Pipeline.HandoffTimeout)
	worker := pipelinehelper.New(cfg.Auth.WebhookSecret, cfg.Pipeline.DispatchTimeout)
	slack := slackhelper.New(cfg.Auth.SlackBotToken, "")
	d := Deps{
		Slack:   slack,
		Stage:   stage,
		Worker:  worker,
		closers: []io.Closer{stage, worker, slack},
	}

	if cfg.Storage.Bucket != "" && cfg.Storage.AccessKey != "" {
		videos, err := storage.NewS3(cfg.Storage)
		if err != nil {
			log.Errorf("初始化对象存储失败: %v", err)
		} else {
			d.Videos = videos
		}
	} else {
		log.Warnf("storage 未配置，上传与派发阶段不可用")
	}

	if cfg.Gemini.APIKey != "" {
		gemini := llmhelper.NewGemini(cfg.Gemini).WithRetry(retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: cfg.Retry.BaseDelay})
		d.LLM = gemini
		d.closers = append(d.closers, gemini)
	}
	if cfg.Notion.APIKey != "" {
		notion := notionhelper.New(cfg.Notion)
		d.Notion = notion
		d.closers = append(d.closers, notion)
	}
	return d
}

// Server 流水线 HTTP 服务
type Server struct {
	Config  *config.Config
	Logger  *logger.Logger
	gin     *gin.Engine
	http    *http.Server
	db      *gorm.DB
	deps    Deps
	bg      *service.Background
	monitor *service.MonitorService
}

// New 创建服务，db 由调用方打开，Shutdown 时关闭
func New(cfg *config.Config, log *logger.Logger, db *gorm.DB) *Server {
	return NewWithDeps(cfg, log, db, DepsFromConfig(cfg, log))
}

// NewWithDeps 使用给定的客户端创建服务
func NewWithDeps(cfg *config.Config, log *logger.Logger, db *gorm.DB, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))

	s := &Server{
		Config: cfg,
		Logger: log,
		gin:    router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		db:   db,
		deps: deps,
		bg:   service.NewBackground(log, cfg.Pipeline.HandoffTimeout),
	}

	st := store.New(db)
	if cfg.Monitor.Enabled {
		s.monitor = service.NewMonitorService(cfg.Monitor, log, st)
	}

	s.setupRoutes(st)

	return s
}

// Handler 返回路由，供测试使用
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Background 返回后台执行器
func (s *Server) Background() *service.Background {
	return s.bg
}

// Start 启动服务器，阻塞直到关闭
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	if s.monitor != nil {
		if err := s.monitor.Start(); err != nil {
			s.Logger.Errorf("任务监控启动失败: %v", err)
		}
	}

	return s.http.ListenAndServe()
}

// Shutdown 停止接收请求，等待后台调用结束后关闭数据库
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	if s.monitor != nil {
		s.monitor.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.Logger.Warnf("等待后台调用超时")
	}

	for _, c := range s.deps.closers {
		if cerr := c.Close(); cerr != nil {
			s.Logger.Warnf("关闭客户端失败: %v", cerr)
		}
	}
	if cerr := database.Close(s.db); cerr != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", cerr)
	}
	return err
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes(st *store.Store) {
	cfg := s.Config
	log := s.Logger

	pipeline := handler.NewPipelineHandler(log, handler.PipelineServices{
		Intake:              service.NewIntakeService(cfg, log, st, s.deps.Slack, s.deps.Videos, s.deps.Stage, s.bg),
		UploadURL:           service.NewUploadURLService(log, s.deps.Videos),
		Dispatch:            service.NewDispatchService(cfg, log, st, s.deps.Videos, s.deps.Worker),
		TranscriptionResult: service.NewTranscriptionResultService(log, st),
		Summarize:           service.NewSummarizeService(cfg, log, st, s.deps.LLM, s.deps.Stage, s.bg),
		NotionSync:          service.NewNotionSyncService(log, st, s.deps.Notion),
	})
	slackEvents := handler.NewSlackEventHandler(log,
		auth.NewSlackVerifier(cfg.Auth.SlackSigningSecret),
		service.NewSlackEventService(cfg, log, s.deps.Stage, s.bg))
	tasks := handler.NewTaskHandler(log, service.NewTaskQueryService(st))

	api := s.gin.Group("/api")

	// Slack 使用签名而不是共享密钥
	api.POST("/slack/events", slackEvents.Events)

	protected := api.Group("/")
	protected.Use(middleware.BearerAuth(cfg.Auth.WebhookSecret, log))
	{
		protected.POST("/slack/intake", pipeline.Intake)
		protected.POST("/upload-url", pipeline.UploadURL)
		protected.POST("/start-task", pipeline.StartTask)
		protected.POST("/transcription-result", pipeline.TranscriptionResult)
		protected.POST("/summarize-task", pipeline.SummarizeTask)
		protected.POST("/notion-sync", pipeline.NotionSync)

		protected.GET("/tasks/stats", tasks.Stats)
		protected.GET("/tasks/:id", tasks.GetTask)
	}
}
