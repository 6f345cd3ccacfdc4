package cmd

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:     "mtglog",
	Short:   "会议录像议事录流水线",
	Long:    "把 Slack 上传的会议视频转写、摘要并发布到 Notion",
	Version: "1.0.0",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig 配置文件可选，环境变量覆盖同名配置项，例如 AUTH_WEBHOOK_SECRET 对应 auth.webhook_secret
func initConfig() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	viper.AddConfigPath("./data") // 相对于当前工作目录的 data 文件夹
	viper.AddConfigPath(".")      // 当前目录
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}
