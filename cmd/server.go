package cmd

import (
	"context"
	"net/http"
	"time"

	"mtglog/app/config"
	"mtglog/app/database"
	"mtglog/app/logger"
	"mtglog/app/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动流水线服务",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		// 创建日志器
		log := logger.New(cfg.Log)
		defer log.Close()

		db, err := database.Open(cfg.Database, log)
		if err != nil {
			log.Fatalf("数据库初始化失败: %v", err)
		}

		srv := server.New(cfg, log, db)

		// 在协程中启动服务器
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("启动服务器失败: %v", err)
			}
		}()

		sig := waitForShutdown()
		log.Infof("收到 %s 信号，正在关闭服务器...", sig)

		// 后台的阶段调用各自有超时，这里多留一些时间
		wait := cfg.Pipeline.HandoffTimeout + 5*time.Second
		ctx, cancel := context.WithTimeout(context.Background(), wait)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("服务器关闭失败: %v", err)
		}
		log.Info("服务器已退出")
	},
}

func init() {
	serverCmd.Flags().String("port", "", "流水线服务监听端口")
	_ = viper.BindPFlag("server.port", serverCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serverCmd)
}
