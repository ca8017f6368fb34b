// @title Magic Mirror API
// @version 1.0
// @description 摄像头画面分析与语音朗读代理接口
// @BasePath /api
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"magic-mirror-server/internal/bootstrap"
)

func main() {
	fmt.Printf("[%s] [INFO] [引导] 开始启动 magic-mirror %s...\n", time.Now().Format("2006-01-02 15:04:05.000"), bootstrap.Version)
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "magic-mirror failed: %v\n", err)
		os.Exit(1)
	}
}
