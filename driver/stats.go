package driver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"entgo.io/ent/dialect"
)

// Verb classifies a statement by its leading keyword.
type Verb int

// Statement verbs.
const (
	VerbSelect Verb = iota
	VerbInsert
	VerbUpdate
	VerbDelete
	VerbOther
	numVerbs
)

var verbNames = [numVerbs]string{"select", "insert", "update", "delete", "other"}

// String implements fmt.Stringer.
func (v Verb) String() string {
	if v < 0 || v >= numVerbs {
		return "other"
	}
	return verbNames[v]
}

// VerbOf returns the verb of a SQL statement. Common table expressions
// count as selects.
func VerbOf(query string) Verb {
	query = strings.TrimLeft(query, " \t\r\n(")
	end := strings.IndexAny(query, " \t\r\n(")
	if end < 0 {
		end = len(query)
	}
	switch strings.ToUpper(query[:end]) {
	case "SELECT", "WITH":
		return VerbSelect
	case "INSERT":
		return VerbInsert
	case "UPDATE":
		return VerbUpdate
	case "DELETE":
		return VerbDelete
	default:
		return VerbOther
	}
}

// Stats counts the statements sent through a StatsDriver. A cascading
// write shows up as its inserts, updates and deletes.
type Stats struct {
	statements [numVerbs]atomic.Int64
	duration   atomic.Int64 // nanoseconds
	slow       atomic.Int64
	errors     atomic.Int64
}

func (s *Stats) add(verb Verb, d time.Duration, slow bool, err error) {
	s.statements[verb].Add(1)
	s.duration.Add(int64(d))
	if slow {
		s.slow.Add(1)
	}
	if err != nil {
		s.errors.Add(1)
	}
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Duration: time.Duration(s.duration.Load()),
		Slow:     s.slow.Load(),
		Errors:   s.errors.Load(),
	}
	for v := range snap.Statements {
		snap.Statements[v] = s.statements[v].Load()
	}
	return snap
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	for v := range s.statements {
		s.statements[v].Store(0)
	}
	s.duration.Store(0)
	s.slow.Store(0)
	s.errors.Store(0)
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Statements [numVerbs]int64 // indexed by Verb
	Duration   time.Duration
	Slow       int64
	Errors     int64
}

// Count returns the number of statements of verb.
func (s Snapshot) Count(verb Verb) int64 {
	if verb < 0 || verb >= numVerbs {
		return 0
	}
	return s.Statements[verb]
}

// Total returns the number of statements of every verb.
func (s Snapshot) Total() int64 {
	var n int64
	for _, c := range s.Statements {
		n += c
	}
	return n
}

// Writes returns the number of inserts, updates and deletes.
func (s Snapshot) Writes() int64 {
	return s.Statements[VerbInsert] + s.Statements[VerbUpdate] + s.Statements[VerbDelete]
}

// AvgDuration returns the average statement duration.
func (s Snapshot) AvgDuration() time.Duration {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return s.Duration / time.Duration(total)
}

// String returns a summary like
// "select=3 insert=1 update=0 delete=0 other=0 duration=2ms avg=500µs slow=0 errors=0".
func (s Snapshot) String() string {
	var b strings.Builder
	for v, c := range s.Statements {
		fmt.Fprintf(&b, "%s=%d ", Verb(v), c)
	}
	fmt.Fprintf(&b, "duration=%s avg=%s slow=%d errors=%d", s.Duration, s.AvgDuration(), s.Slow, s.Errors)
	return b.String()
}

// SlowQueryHook is a function called when a slow query is detected.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver wraps a Driver with query statistics collection.
type StatsDriver struct {
	dialect.Driver
	stats         *Stats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow query detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow queries.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow queries to logger at warn level. A nil
// logger means slog.Default().
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		logger.WarnContext(ctx, "slow query detected", "duration", duration, "query", query, "args", args)
	})
}

// NewStatsDriver wraps a Driver with statistics collection.
//
//	drv, _ := driver.Open("postgres", dsn)
//	stats := driver.NewStatsDriver(drv,
//	    driver.WithSlowThreshold(200*time.Millisecond),
//	    driver.WithSlowQueryLog(logger),
//	)
//	repo, _ := repository.New(reg, "User", stats)
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:        drv,
		stats:         &Stats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the statement counters.
func (d *StatsDriver) Stats() *Stats {
	return d.stats
}

// SlowThreshold returns the current slow query threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow query threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Query executes a query and records statistics.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, args, start, err)
	return err
}

// Exec executes a statement and records statistics.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, args, start, err)
	return err
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, start time.Time, err error) {
	duration := time.Since(start)
	d.mu.RLock()
	threshold := d.slowThreshold
	hook := d.slowHook
	d.mu.RUnlock()

	slow := duration > threshold
	d.stats.add(VerbOf(query), duration, slow, err)
	if slow && hook != nil {
		argsSlice, _ := args.([]any)
		hook(ctx, query, argsSlice, duration)
	}
}

// Tx starts a transaction that also records statistics.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx wraps a transaction with statistics collection.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query executes a query within the transaction and records statistics.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err)
	return err
}

// Exec executes a statement within the transaction and records statistics.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err)
	return err
}

// DebugDriver logs every statement at debug level.
type DebugDriver struct {
	dialect.Driver
	logger *slog.Logger
}

// NewDebugDriver wraps a Driver with debug logging. A nil logger means
// slog.Default().
func NewDebugDriver(drv dialect.Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger}
}

// Query executes a query and logs it.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.logger.DebugContext(ctx, "query", "sql", query, "args", args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec executes a statement and logs it.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.logger.DebugContext(ctx, "exec", "sql", query, "args", args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction with debug logging.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.logger.DebugContext(ctx, "begin transaction")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, logger: d.logger}, nil
}

// DebugTx wraps a transaction with debug logging.
type DebugTx struct {
	dialect.Tx
	logger *slog.Logger
}

// Query executes a query within the transaction and logs it.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.logger.DebugContext(ctx, "tx query", "sql", query, "args", args)
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec executes a statement within the transaction and logs it.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.logger.DebugContext(ctx, "tx exec", "sql", query, "args", args)
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit commits the transaction and logs it.
func (tx *DebugTx) Commit() error {
	tx.logger.Debug("commit transaction")
	return tx.Tx.Commit()
}

// Rollback rolls back the transaction and logs it.
func (tx *DebugTx) Rollback() error {
	tx.logger.Debug("rollback transaction")
	return tx.Tx.Rollback()
}

// Ensure interfaces are implemented.
var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)
