package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mtglog/app/config"
	"mtglog/app/logger"
	"mtglog/app/utils/downloader"
	"mtglog/app/utils/speechhelper"
)

// TranscribeResponse worker 的响应
type TranscribeResponse struct {
	Message  string `json:"message"`
	TaskID   string `json:"taskId"`
	Accepted bool   `json:"-"`
}

// TranscriberService 下载视频、抽取音频、识别并把结果交给摘要阶段
type TranscriberService struct {
	cfg        *config.Config
	log        *logger.Logger
	audio      AudioExtractor
	objects    ObjectUploader
	recognizer speechhelper.Recognizer
	stage      StagePoster
	bg         *Background
}

// NewTranscriberService recognizer 或 objects 为 nil 表示未配置
func NewTranscriberService(cfg *config.Config, log *logger.Logger, audio AudioExtractor, objects ObjectUploader, recognizer speechhelper.Recognizer, stage StagePoster, bg *Background) *TranscriberService {
	return &TranscriberService{
		cfg:        cfg,
		log:        log,
		audio:      audio,
		objects:    objects,
		recognizer: recognizer,
		stage:      stage,
		bg:         bg,
	}
}

// Transcribe 异步模式校验后立即返回，作业在后台继续
func (s *TranscriberService) Transcribe(ctx context.Context, job TranscribeJob) (*TranscribeResponse, error) {
	if job.SignedURL == "" || job.GCSBucket == "" || job.GCSDestPath == "" || job.TaskID == "" {
		return nil, badRequest("Missing required parameters", "")
	}
	if s.recognizer == nil {
		return nil, misconfigured("speech")
	}
	if s.objects == nil {
		return nil, misconfigured("storage")
	}

	if s.cfg.Transcriber.Async {
		s.bg.Go("transcribe "+job.TaskID, func(ctx context.Context) error {
			return s.Run(ctx, job)
		})
		return &TranscribeResponse{Message: "Transcription accepted", TaskID: job.TaskID, Accepted: true}, nil
	}

	if err := s.Run(ctx, job); err != nil {
		return nil, internal("Transcription failed", err)
	}
	return &TranscribeResponse{Message: "Transcription and summarize-task POST successful", TaskID: job.TaskID}, nil
}

// Run 执行一次完整作业，临时文件无论成败都会删除
func (s *TranscriberService) Run(ctx context.Context, job TranscribeJob) error {
	transcript, err := s.transcribe(ctx, job)
	if err != nil {
		s.report(ctx, TranscriptionResult{TaskID: job.TaskID, Error: detail(err)})
		return err
	}
	s.report(ctx, TranscriptionResult{TaskID: job.TaskID, Transcript: transcript})

	if err := s.stage.Post(ctx, s.cfg.SummarizeEndpoint(), SummarizeRequest{TaskID: job.TaskID, Transcript: transcript}, nil); err != nil {
		return fmt.Errorf("调用 summarize-task 失败: %w", err)
	}
	s.log.Infof("任务 %s 转写完成，已提交摘要 (%d 字)", job.TaskID, len([]rune(transcript)))
	return nil
}

func (s *TranscriberService) transcribe(ctx context.Context, job TranscribeJob) (string, error) {
	// work_dir 为空时使用系统临时目录
	if s.cfg.Transcriber.WorkDir != "" {
		if err := os.MkdirAll(s.cfg.Transcriber.WorkDir, 0755); err != nil {
			return "", fmt.Errorf("创建工作目录失败: %w", err)
		}
	}
	log := s.log.ForTask(job.TaskID)
	dir, err := os.MkdirTemp(s.cfg.Transcriber.WorkDir, "task-"+job.TaskID+"-")
	if err != nil {
		return "", fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warnf("清理临时目录 %s 失败: %v", dir, err)
		}
	}()

	videoPath := filepath.Join(dir, "video.mp4")
	audioPath := filepath.Join(dir, "audio.mp3")

	res, err := downloader.Download(ctx, job.SignedURL, videoPath, downloader.DefaultConfig())
	if err != nil {
		return "", err
	}
	log.Infof("视频下载完成: %d bytes, 耗时 %v", res.Size, res.Duration)

	if err := s.audio.Extract(ctx, videoPath, audioPath); err != nil {
		return "", err
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("打开音频文件失败: %w", err)
	}
	err = s.objects.Upload(ctx, job.GCSBucket, job.GCSDestPath, f, "audio/mpeg")
	f.Close()
	if err != nil {
		return "", err
	}
	uri := fmt.Sprintf("gs://%s/%s", job.GCSBucket, job.GCSDestPath)
	log.Infof("音频已上传: %s", uri)

	transcript, err := s.recognizer.Recognize(ctx, speechhelper.Audio{Path: audioPath, URI: uri})
	if err != nil {
		return "", err
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", fmt.Errorf("识别结果为空")
	}
	return transcript, nil
}

// report 回报转写结果，失败只记日志
func (s *TranscriberService) report(ctx context.Context, result TranscriptionResult) {
	url := s.cfg.StageURL("/api/transcription-result")
	if url == "" {
		return
	}
	if err := s.stage.Post(ctx, url, result, nil); err != nil {
		s.log.Warnf("任务 %s 回报转写结果失败: %s", result.TaskID, detail(err))
	}
}
