package service

import (
	"context"
	"time"

	"mtglog/app/config"
	"mtglog/app/logger"
	"mtglog/app/storage"

	"github.com/patrickmn/go-cache"
)

const seenFileTTL = 10 * time.Minute

// SlackEnvelope Events API 外层结构
type SlackEnvelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge,omitempty"`
	TeamID    string     `json:"team_id"`
	EventID   string     `json:"event_id"`
	Event     SlackEvent `json:"event"`
}

// SlackEvent 消息事件
type SlackEvent struct {
	Type    string           `json:"type"`
	Subtype string           `json:"subtype"`
	Files   []SlackEventFile `json:"files"`
	User    string           `json:"user"`
	Channel string           `json:"channel"`
	EventTS string           `json:"event_ts"`
	Text    string           `json:"text"`
}

// SlackEventFile 事件附带的文件
type SlackEventFile struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Mimetype           string `json:"mimetype"`
	Filetype           string `json:"filetype"`
	URLPrivateDownload string `json:"url_private_download"`
}

// SlackEventService 把事件中的视频附件转发给 intake
type SlackEventService struct {
	cfg   *config.Config
	log   *logger.Logger
	stage StagePoster
	bg    *Background
	seen  *cache.Cache
}

func NewSlackEventService(cfg *config.Config, log *logger.Logger, stage StagePoster, bg *Background) *SlackEventService {
	return &SlackEventService{
		cfg:   cfg,
		log:   log,
		stage: stage,
		bg:    bg,
		seen:  cache.New(seenFileTTL, 2*seenFileTTL),
	}
}

// Handle 返回转发的文件数。单个文件的失败只记日志，不影响同一事件中的其他文件
func (s *SlackEventService) Handle(env SlackEnvelope, retryNum string) int {
	if env.Type != "event_callback" || len(env.Event.Files) == 0 {
		return 0
	}
	if retryNum != "" {
		s.log.Infof("忽略 Slack 重试事件 %s (retry=%s)", env.EventID, retryNum)
		return 0
	}

	url := s.cfg.StageURL("/api/slack/intake")
	if url == "" {
		s.log.Errorf("pipeline.app_url 未配置，无法转发 Slack 文件")
		return 0
	}

	forwarded := 0
	for _, f := range env.Event.Files {
		if !storage.Accepted(f.Name, f.Mimetype) {
			s.log.Infof("跳过非 mp4 文件: %s (%s)", f.Name, f.Mimetype)
			continue
		}
		if f.ID != "" {
			if err := s.seen.Add(f.ID, struct{}{}, cache.DefaultExpiration); err != nil {
				s.log.Infof("文件 %s 已处理过，跳过", f.ID)
				continue
			}
		}

		req := IntakeRequest{
			FileID:           f.ID,
			OriginalFileName: f.Name,
			Mimetype:         f.Mimetype,
			Filetype:         f.Filetype,
			SlackDownloadURL: f.URLPrivateDownload,
			SlackUserID:      env.Event.User,
			SlackChannelID:   env.Event.Channel,
			SlackTeamID:      env.TeamID,
			SlackEventTS:     env.Event.EventTS,
			Text:             env.Event.Text,
		}
		s.bg.Go("intake "+f.ID, func(ctx context.Context) error {
			return s.stage.Post(ctx, url, req, nil)
		})
		forwarded++
	}
	return forwarded
}
