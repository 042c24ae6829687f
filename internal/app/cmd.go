package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は利息配分ワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandAccrue は利息配分パスを1回だけ実行して終了することを示す。
	CommandAccrue Command = "accrue"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "worker":
		return CommandWorker
	case "accrue":
		return CommandAccrue
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
