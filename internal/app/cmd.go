package app

import (
	"fmt"
	"io"
)

// Command はfitlogバイナリのサブコマンドを表す。
type Command string

const (
	// CommandServe はHTTP APIを起動する。引数省略時のデフォルト。
	CommandServe Command = "serve"
	// CommandWorker はPostgreSQLセッションの期限切れ掃除を定期実行する。
	CommandWorker Command = "worker"
	// CommandMigrate はスキーマを最新バージョンまで適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のserveの/healthを叩いて終了コードで結果を返す。
	// distrolessイメージのHEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
	// CommandHelp は使い方を表示する。
	CommandHelp Command = "help"
)

var commandUsage = []struct {
	cmd  Command
	desc string
}{
	{CommandServe, "start the HTTP API (default)"},
	{CommandWorker, "sweep expired sessions from PostgreSQL periodically"},
	{CommandMigrate, "apply database migrations and exit"},
	{CommandHealthcheck, "probe /health of a running server"},
	{CommandHelp, "show this message"},
}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返す。未知のサブコマンドはエラー。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	switch args[0] {
	case "-h", "--help":
		return CommandHelp, nil
	}

	for _, u := range commandUsage {
		if string(u.cmd) == args[0] {
			return u.cmd, nil
		}
	}
	return "", fmt.Errorf("unknown command %q", args[0])
}

// PrintUsage はサブコマンド一覧をwに書き出す。
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: fitlog [command]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, u := range commandUsage {
		fmt.Fprintf(w, "  %-12s %s\n", u.cmd, u.desc)
	}
}
