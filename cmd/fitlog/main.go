// Command fitlog は健康記録APIサーバーと周辺サブコマンドを起動する。
//
//	fitlog [serve|worker|migrate|healthcheck]
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/fitlog/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("fitlog exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
