package cmd

import (
	"context"
	"net/http"
	"time"

	"mtglog/app/config"
	"mtglog/app/logger"
	"mtglog/app/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var transcriberCmd = &cobra.Command{
	Use:   "transcriber",
	Short: "启动转写 worker",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		log := logger.New(cfg.Log)
		defer log.Close()

		srv := server.NewTranscriberServer(cfg, log)

		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("启动转写服务失败: %v", err)
			}
		}()

		sig := waitForShutdown()
		log.Infof("收到 %s 信号，等待进行中的转写作业...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Errorf("转写服务关闭失败: %v", err)
		}
		log.Info("转写服务已退出")
	},
}

func init() {
	transcriberCmd.Flags().String("port", "", "转写 worker 监听端口")
	_ = viper.BindPFlag("server.transcriber_port", transcriberCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(transcriberCmd)
}
