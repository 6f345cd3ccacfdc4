package cmd

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"mtglog/app/config"
	"mtglog/app/service"
	"mtglog/app/storage"
	"mtglog/app/utils/pipelinehelper"
	"mtglog/app/utils/redact"
	"mtglog/app/utils/retry"

	"github.com/spf13/cobra"
)

var uploadEndpoint string

var uploadCmd = &cobra.Command{
	Use:     "upload <slack-file-url>",
	Short:   "把 Slack 文件交给 intake 阶段",
	Example: "mtglog upload https://files.slack.com/files-pri/T12345-F67890/meeting.mp4",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		endpoint := uploadEndpoint
		if endpoint == "" {
			endpoint = cfg.StageURL("/api/slack/intake")
		}
		if endpoint == "" || cfg.Auth.WebhookSecret == "" {
			return fmt.Errorf("需要配置 pipeline.app_url (或 --endpoint) 和 auth.webhook_secret")
		}

		req, err := intakeRequestFor(args[0])
		if err != nil {
			return err
		}

		client := pipelinehelper.New(cfg.Auth.WebhookSecret, 10*time.Minute)
		defer client.Close()

		fmt.Printf("开始上传: %s\n", redact.URL(args[0]))
		var res service.IntakeResult
		policy := retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: cfg.Retry.BaseDelay}
		err = policy.Do(cmd.Context(), func(ctx context.Context) error {
			return client.Post(ctx, endpoint, req, &res)
		}, func(err error, wait time.Duration) {
			fmt.Printf("上传失败，%v 后重试: %s\n", wait, redact.Error(err))
		})
		if err != nil {
			return fmt.Errorf("上传失败: %s", redact.Error(err, cfg.Auth.WebhookSecret))
		}

		fmt.Println("上传完成")
		fmt.Printf("  - 状态: %s\n", res.Status)
		if res.TaskID != "" {
			fmt.Printf("  - 任务: %s\n", res.TaskID)
			fmt.Printf("  - 存储路径: %s\n", res.StoragePath)
		}
		if res.Reason != "" {
			fmt.Printf("  - 原因: %s\n", res.Reason)
		}
		return nil
	},
}

// intakeRequestFor 从 Slack 文件地址推断文件名
func intakeRequestFor(fileURL string) (service.IntakeRequest, error) {
	u, err := url.Parse(fileURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return service.IntakeRequest{}, fmt.Errorf("无效的 Slack 文件地址: %s", fileURL)
	}
	name := path.Base(u.Path)
	req := service.IntakeRequest{
		OriginalFileName: name,
		SlackDownloadURL: fileURL,
	}
	if strings.EqualFold(path.Ext(name), storage.AcceptedExtension) {
		req.Mimetype = storage.AcceptedContentType
		req.Filetype = "mp4"
	}
	return req, nil
}

func init() {
	uploadCmd.Flags().StringVar(&uploadEndpoint, "endpoint", "", "intake 地址，默认由 pipeline.app_url 推导")
	rootCmd.AddCommand(uploadCmd)
}
