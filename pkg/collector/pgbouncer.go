package collector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/pgbouncer-exporter/pkg/config"
	"github.com/pgbouncer-exporter/pkg/metrics"
)

const (
	upMetricName = "pgbouncer_up"
	upMetricHelp = "PgBouncer is UP and the scraping of all metrics succeeded"
)

// Opener 打开到目标管理控制台的连接，返回前应已完成连通性检查
type Opener func(ctx context.Context, cfg config.PgBouncerConfig) (*sql.DB, error)

// PgBouncerCollector 单个 PgBouncer 目标的采集器（TargetCollector）
// 每次采集新建连接，结束前关闭；任何错误都不会抛出到 Collect 之外
type PgBouncerCollector struct {
	cfg     config.PgBouncerConfig
	include map[string]struct{}
	exclude map[string]struct{}

	open    Opener
	log     *zap.Logger
	metrics *metrics.ExporterMetrics
}

// Option 采集器可选项
type Option func(*PgBouncerCollector)

// WithOpener 替换连接方式（测试中注入 sqlmock）
func WithOpener(open Opener) Option {
	return func(c *PgBouncerCollector) { c.open = open }
}

// WithMetrics 记录自身指标
func WithMetrics(m *metrics.ExporterMetrics) Option {
	return func(c *PgBouncerCollector) { c.metrics = m }
}

// NewPgBouncerCollector 创建采集器
func NewPgBouncerCollector(cfg config.PgBouncerConfig, log *zap.Logger, opts ...Option) *PgBouncerCollector {
	if log == nil {
		log = zap.NewNop()
	}
	c := &PgBouncerCollector{
		cfg:     cfg,
		include: toSet(cfg.IncludeDatabases),
		exclude: toSet(cfg.ExcludeDatabases),
		open:    OpenPgx,
		log:     log.With(zap.String("dsn", cfg.MaskedDSN())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config 返回目标配置
func (c *PgBouncerCollector) Config() config.PgBouncerConfig { return c.cfg }

// Collect 执行全部查询，返回样本 + 最后一条 pgbouncer_up
func (c *PgBouncerCollector) Collect(ctx context.Context) []MetricSample {
	start := time.Now()
	defer func() { c.metrics.ObserveCollect(time.Since(start)) }()

	var (
		samples []MetricSample
		success bool
		pc      panics.Catcher
	)
	pc.Try(func() { samples, success = c.collect(ctx) })
	if r := pc.Recovered(); r != nil {
		c.log.Error("Unable fetch metrics: collector panicked", zap.Error(r.AsError()))
		c.metrics.QueryFailed("panic")
		samples, success = nil, false
	}

	return append(samples, c.upSample(success))
}

func (c *PgBouncerCollector) collect(ctx context.Context) ([]MetricSample, bool) {
	// 1. 连接（受 connect_timeout 限制）
	db, err := c.open(ctx, c.cfg)
	if err != nil {
		c.log.Error("Unable fetch metrics", zap.Error(err))
		c.metrics.QueryFailed("connect")
		return nil, false
	}
	defer func() {
		if err := db.Close(); err != nil {
			c.log.Debug("closing connection failed", zap.Error(err))
		}
	}()

	// 2. 三条查询互相独立，单条失败不影响其他查询
	success := true
	var samples []MetricSample
	for _, q := range introspectionQueries {
		rows, err := c.fetch(ctx, db, q.query)
		if err != nil {
			c.log.Error("Unable run query", zap.String("query", q.query), zap.Error(err))
			c.metrics.QueryFailed(q.name)
			success = false
			continue
		}
		samples = append(samples, q.export(c.filter(rows), c.cfg.ExtraLabels)...)
	}
	return samples, success
}

func (c *PgBouncerCollector) upSample(success bool) MetricSample {
	value := 0.0
	if success {
		value = 1
	}
	return MetricSample{
		Kind:   Gauge,
		Name:   upMetricName,
		Value:  value,
		Labels: Labels{}.withExtra(c.cfg.ExtraLabels),
		Help:   upMetricHelp,
	}
}

// fetch 执行查询并把每行读成 列名 -> 文本值
func (c *PgBouncerCollector) fetch(ctx context.Context, db *sql.DB, query string) ([]Row, error) {
	if timeout := c.cfg.QueryTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	values := makeNullStrings(len(columns))
	for rows.Next() {
		if err := rows.Scan(values...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, v := range values {
			if ns := v.(*sql.NullString); ns.Valid {
				row[columns[i]] = ns.String
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// filter 先 include 后 exclude，空集合表示不限制
func (c *PgBouncerCollector) filter(rows []Row) []Row {
	if len(c.include) == 0 && len(c.exclude) == 0 {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		db := row["database"]
		if len(c.include) > 0 {
			if _, ok := c.include[db]; !ok {
				continue
			}
		}
		if _, ok := c.exclude[db]; ok {
			continue
		}
		out = append(out, row)
	}
	return out
}

// OpenPgx 通过 pgx 打开连接；管理控制台只支持简单查询协议
func OpenPgx(ctx context.Context, cfg config.PgBouncerConfig) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	connCfg.ConnectTimeout = cfg.ConnectTimeoutDuration()
	connCfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if timeout := cfg.ConnectTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	// 不用 Ping：管理控制台不认识 pgx 的 "-- ping" 语句
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	_ = conn.Close()
	return db, nil
}

func makeNullStrings(size int) []any {
	vs := make([]any, size)
	for i := range vs {
		vs[i] = &sql.NullString{}
	}
	return vs
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
