package main

import (
	"github.com/pgbouncer-exporter/cmd/agent"
)

func main() {
	agent.Execute()
}
