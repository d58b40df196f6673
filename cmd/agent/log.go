package agent

import (
	"github.com/spf13/cobra"
)

func initLogFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String(
		"log-level",
		defaultCfg.Log.Level,
		"-> Log level [debug,info,warn,error] | 日志级别，覆盖配置文件 log.level")
	f.String(
		"log-format",
		defaultCfg.Log.Format,
		"-> Console log format [console,json] | 控制台日志格式")
	f.String(
		"log-path",
		defaultCfg.Log.Path,
		"-> Log file directory, empty for stdout only | 日志目录")
}
