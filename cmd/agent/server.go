package agent

import (
	"github.com/spf13/cobra"

	"github.com/pgbouncer-exporter/pkg/config"
)

var defaultCfg = config.NewDefaultConfig()

func initServerFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("exporter-host", defaultCfg.ExporterHost, "-> HTTP listening host (HTTP监听地址)")
	f.Int("exporter-port", defaultCfg.ExporterPort, "-> HTTP listening port (HTTP监听端口)")
}
