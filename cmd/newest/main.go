package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/LouYuanbo1/listingcrawler/cmd/newest/commands"
)

// 内嵌默认配置, 运行时可以用 --config 指定的文件和 NEWEST_ 开头的环境变量覆盖
//
//go:embed appconfig/appconfig.json
var appConfig []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	commands.ExecuteContext(ctx, appConfig)
}
