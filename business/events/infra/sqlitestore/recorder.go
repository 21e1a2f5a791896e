// Package sqlitestore records opportunity and execution events in SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	arbDomain "github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/business/events/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// OpportunityRecord is one stored opportunity. Amounts are decimal strings.
type OpportunityRecord struct {
	ID          string
	Key         string
	Pair        string
	BuyDEX      string
	SellDEX     string
	SpreadPct   string
	Amount      string
	NetProfit   string
	BlockNumber uint64
	CreatedAt   time.Time
}

// ExecutionRecord is one stored execution result.
type ExecutionRecord struct {
	OpportunityID string
	Success       bool
	DryRun        bool
	TxHash        string
	ErrorKind     string
	Detail        string
	CompletedAt   time.Time
}

// Recorder persists events. Unknown payloads are ignored.
type Recorder struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the database at path.
func Open(path string) (*Recorder, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageError(err, "open "+path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &Recorder{db: db}
	if err := r.init(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) init() error {
	const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id TEXT PRIMARY KEY,
	opp_key TEXT NOT NULL,
	pair TEXT NOT NULL,
	buy_dex TEXT NOT NULL,
	sell_dex TEXT NOT NULL,
	buy_price TEXT NOT NULL,
	sell_price TEXT NOT NULL,
	spread_percent TEXT NOT NULL,
	flashloan_amount TEXT NOT NULL,
	gross_profit TEXT NOT NULL,
	gas_cost TEXT NOT NULL,
	flashloan_fee TEXT NOT NULL,
	net_profit TEXT NOT NULL,
	block_number INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opportunities_block ON opportunities(block_number);
CREATE TABLE IF NOT EXISTS executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	opportunity_id TEXT NOT NULL,
	opp_key TEXT NOT NULL,
	success INTEGER NOT NULL,
	dry_run INTEGER NOT NULL,
	tx_hash TEXT NOT NULL DEFAULT '',
	block_number INTEGER,
	gas_used INTEGER,
	profit_realized TEXT,
	error_kind TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	completed_at TEXT NOT NULL
);`

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec(schema); err != nil {
		return storageError(err, "create schema")
	}
	return nil
}

// Send stores e according to its payload.
func (r *Recorder) Send(ctx context.Context, e domain.Event) error {
	switch p := e.Payload.(type) {
	case *arbDomain.ArbitrageOpportunity:
		return r.saveOpportunity(ctx, p)
	case arbDomain.ExecutionResult:
		return r.saveExecution(ctx, p)
	}
	return nil
}

func (r *Recorder) saveOpportunity(ctx context.Context, o *arbDomain.ArbitrageOpportunity) error {
	const insert = `
INSERT INTO opportunities (
	id, opp_key, pair, buy_dex, sell_dex, buy_price, sell_price, spread_percent,
	flashloan_amount, gross_profit, gas_cost, flashloan_fee, net_profit, block_number, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING;`

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, insert,
		o.ID, o.Key(), o.Pair.String(), o.BuyDEX(), o.SellDEX(),
		o.BuyPrice.String(), o.SellPrice.String(), o.SpreadPercent.String(),
		o.FlashloanAmount.String(), o.GrossProfit.String(), o.GasCostEstimate.String(),
		o.FlashloanFee.String(), o.NetProfit.String(),
		int64(o.BlockNumber), o.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storageError(err, "insert opportunity "+o.ID)
	}
	return nil
}

func (r *Recorder) saveExecution(ctx context.Context, res arbDomain.ExecutionResult) error {
	const insert = `
INSERT INTO executions (
	opportunity_id, opp_key, success, dry_run, tx_hash, block_number, gas_used,
	profit_realized, error_kind, detail, completed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	var (
		txHash string
		block  sql.NullInt64
		gas    sql.NullInt64
		profit sql.NullString
	)
	if res.TxHash != nil {
		txHash = res.TxHash.Hex()
	}
	if res.BlockNumber != nil {
		block = sql.NullInt64{Int64: int64(*res.BlockNumber), Valid: true}
	}
	if res.GasUsed != nil {
		gas = sql.NullInt64{Int64: int64(*res.GasUsed), Valid: true}
	}
	if res.ProfitRealized != nil {
		profit = sql.NullString{String: res.ProfitRealized.String(), Valid: true}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, insert,
		res.OpportunityID, res.OpportunityKey, res.Success, res.DryRun, txHash,
		block, gas, profit, string(res.ErrorKind), res.Detail,
		res.CompletedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storageError(err, "insert execution "+res.OpportunityID)
	}
	return nil
}

// RecentOpportunities returns up to limit opportunities, newest block first.
func (r *Recorder) RecentOpportunities(ctx context.Context, limit int) ([]OpportunityRecord, error) {
	const query = `
SELECT id, opp_key, pair, buy_dex, sell_dex, spread_percent, flashloan_amount, net_profit, block_number, created_at
FROM opportunities
ORDER BY block_number DESC, created_at DESC
LIMIT ?;`

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storageError(err, "select opportunities")
	}
	defer rows.Close()

	var out []OpportunityRecord
	for rows.Next() {
		var (
			rec       OpportunityRecord
			block     int64
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Key, &rec.Pair, &rec.BuyDEX, &rec.SellDEX,
			&rec.SpreadPct, &rec.Amount, &rec.NetProfit, &block, &createdAt); err != nil {
			return nil, storageError(err, "scan opportunity")
		}
		rec.BlockNumber = uint64(block)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "iterate opportunities")
	}
	return out, nil
}

// RecentExecutions returns up to limit executions, newest first.
func (r *Recorder) RecentExecutions(ctx context.Context, limit int) ([]ExecutionRecord, error) {
	const query = `
SELECT opportunity_id, success, dry_run, tx_hash, error_kind, detail, completed_at
FROM executions
ORDER BY id DESC
LIMIT ?;`

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storageError(err, "select executions")
	}
	defer rows.Close()

	var out []ExecutionRecord
	for rows.Next() {
		var (
			rec         ExecutionRecord
			completedAt string
		)
		if err := rows.Scan(&rec.OpportunityID, &rec.Success, &rec.DryRun, &rec.TxHash,
			&rec.ErrorKind, &rec.Detail, &completedAt); err != nil {
			return nil, storageError(err, "scan execution")
		}
		rec.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "iterate executions")
	}
	return out, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

func storageError(err error, op string) error {
	return apperror.New(apperror.CodeStorageError,
		apperror.WithCause(err),
		apperror.WithContext("sqlite: "+op))
}
