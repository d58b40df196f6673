package collector

import (
	"strconv"
	"strings"
)

// Row 管理控制台返回的一行数据，NULL 值不出现在 map 中
type Row map[string]string

// metricMapping 列 -> 指标
type metricMapping struct {
	column string
	metric string
	kind   MetricKind
	help   string

	// 可选的小数部分列，例如 maxwait_us；值为 whole + fraction/divisor
	fractionColumn  string
	fractionDivisor float64
}

// labelMapping 列 -> 标签
type labelMapping struct {
	column string
	label  string
}

// introspectionQuery 一条固定的 SHOW 命令及其映射表
type introspectionQuery struct {
	name    string
	query   string
	prefix  string
	metrics []metricMapping
	labels  []labelMapping
}

var statsQuery = introspectionQuery{
	name:   "stats",
	query:  "SHOW STATS",
	prefix: "pgbouncer_stats_",
	metrics: []metricMapping{
		// pgbouncer < 1.8
		{column: "total_requests", metric: "requests_total", kind: Counter, help: "Total number of requests pooled. Could be transactions or queries, depending on pool mode."},

		// pgbouncer >= 1.8
		{column: "total_xact_count", metric: "transactions_total", kind: Counter, help: "Total number of transactions pooled"},
		{column: "total_query_count", metric: "queries_total", kind: Counter, help: "Total number of queries pooled"},
		{column: "total_xact_time", metric: "transactions_duration_microseconds", kind: Counter, help: "Total number of microseconds spent in a transaction. Includes time spent waiting for an available connection."},
		{column: "total_wait_time", metric: "waiting_duration_microseconds", kind: Counter, help: "Total number of microseconds spent waiting for an available connection."},

		// all versions
		{column: "total_query_time", metric: "queries_duration_microseconds", kind: Counter, help: "Total number of microseconds spent waiting for a server to return a query response. Includes time spent waiting for an available connection."},
		{column: "total_received", metric: "received_bytes_total", kind: Counter, help: "Total volume in bytes of network traffic received by pgbouncer"},
		{column: "total_sent", metric: "sent_bytes_total", kind: Counter, help: "Total volume in bytes of network traffic sent by pgbouncer"},
	},
	labels: []labelMapping{
		{column: "database", label: "database"},
	},
}

var poolsQuery = introspectionQuery{
	name:   "pools",
	query:  "SHOW POOLS",
	prefix: "pgbouncer_pools_",
	metrics: []metricMapping{
		{column: "cl_active", metric: "client_active_connections", kind: Gauge, help: "Client connections that are linked to server connection and can process queries"},
		{column: "cl_waiting", metric: "client_waiting_connections", kind: Gauge, help: "Client connections have sent queries but have not yet got a server connection"},
		{column: "sv_active", metric: "server_active_connections", kind: Gauge, help: "Server connections that linked to client"},
		{column: "sv_idle", metric: "server_idle_connections", kind: Gauge, help: "Server connections that unused and immediately usable for client queries"},
		{column: "sv_used", metric: "server_used_connections", kind: Gauge, help: "Server connections that have been idle more than server_check_delay, so they needs server_check_query to run on it before it can be used"},
		{column: "sv_tested", metric: "server_testing_connections", kind: Gauge, help: "Server connections that are currently running either server_reset_query or server_check_query"},
		{column: "sv_login", metric: "server_login_connections", kind: Gauge, help: "Server connections currently in logging in process"},
		{column: "maxwait", metric: "client_maxwait_seconds", kind: Gauge, help: "How long the first (oldest) client in queue has waited, in seconds",
			fractionColumn: "maxwait_us", fractionDivisor: 1e6},
	},
	labels: []labelMapping{
		{column: "database", label: "database"},
		{column: "user", label: "user"},
	},
}

var databasesQuery = introspectionQuery{
	name:   "databases",
	query:  "SHOW DATABASES",
	prefix: "pgbouncer_databases_",
	metrics: []metricMapping{
		{column: "pool_size", metric: "database_pool_size", kind: Gauge, help: "Configured Pool Size Limit"},
		{column: "reserve_pool", metric: "database_reserve_pool_size", kind: Gauge, help: "Configured Reserve Limit"},
		{column: "current_connections", metric: "database_current_connections", kind: Gauge, help: "Database connection count"},
	},
	labels: []labelMapping{
		{column: "name", label: "database"},
		{column: "database", label: "backend_database"},
	},
}

// introspectionQueries 执行顺序即样本输出顺序
var introspectionQueries = []introspectionQuery{statsQuery, poolsQuery, databasesQuery}

// export 把过滤后的行映射为样本；行中缺失的列直接跳过
func (q introspectionQuery) export(rows []Row, extra map[string]string) []MetricSample {
	var samples []MetricSample

	for _, row := range rows {
		labels := make(Labels, 0, len(q.labels))
		for _, lm := range q.labels {
			labels = append(labels, Label{Name: lm.label, Value: row[lm.column]})
		}
		labels = labels.withExtra(extra)

		for _, m := range q.metrics {
			value, ok := m.value(row)
			if !ok {
				continue
			}
			samples = append(samples, MetricSample{
				Kind:   m.kind,
				Name:   q.prefix + m.metric,
				Value:  value,
				Labels: labels,
				Help:   m.help,
			})
		}
	}
	return samples
}

func (m metricMapping) value(row Row) (float64, bool) {
	raw, ok := row[m.column]
	if !ok {
		return 0, false
	}
	value, err := parseNumber(raw)
	if err != nil {
		return 0, false
	}

	if m.fractionColumn != "" && m.fractionDivisor > 0 {
		if rawFrac, ok := row[m.fractionColumn]; ok {
			if frac, err := parseNumber(rawFrac); err == nil {
				value += frac / m.fractionDivisor
			}
		}
	}
	return value, true
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
