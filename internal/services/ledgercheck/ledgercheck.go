// Package ledgercheck verifies the balance ledger offline: every record must
// start where the previous one for the same balance ended, and every balance
// must hold what its newest record says.
package ledgercheck

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/infra/metrics"
	"github.com/fastprodman/gamemarket/internal/money"
)

// ChainBreak is a record whose balance_before differs from the previous
// record's balance_after.
type ChainBreak struct {
	BalanceID      int64
	TransactionID  int64
	ExpectedBefore decimal.Decimal
	ActualBefore   decimal.Decimal
}

// Drift is a balance whose stored amount differs from its newest record.
type Drift struct {
	BalanceID int64
	Stored    decimal.Decimal
	Ledger    decimal.Decimal
}

type Report struct {
	Breaks []ChainBreak
	Drifts []Drift
}

func (r Report) Violations() int { return len(r.Breaks) + len(r.Drifts) }

type Checker struct {
	db  *sql.DB
	log *slog.Logger
}

func New(db *sql.DB, log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}

	return &Checker{db: db, log: log}
}

const breaksQuery = `
	SELECT balance_id, id, prev_after, balance_before
	FROM (
		SELECT balance_id, id, balance_before,
		       LAG(balance_after) OVER (PARTITION BY balance_id ORDER BY created_at, id) AS prev_after
		FROM balance_transactions
	) t
	WHERE prev_after IS NOT NULL AND prev_after <> balance_before
	ORDER BY balance_id, id
`

// A balance with no ledger rows is expected to be zero.
const driftQuery = `
	SELECT b.id, b.amount, COALESCE(last.balance_after, 0)
	FROM balances b
	LEFT JOIN LATERAL (
		SELECT balance_after
		FROM balance_transactions bt
		WHERE bt.balance_id = b.id
		ORDER BY bt.created_at DESC, bt.id DESC
		LIMIT 1
	) last ON true
	WHERE b.amount <> COALESCE(last.balance_after, 0)
	ORDER BY b.id
`

func (c *Checker) Verify(ctx context.Context) (Report, error) {
	var rep Report

	rows, err := c.db.QueryContext(ctx, breaksQuery)
	if err != nil {
		return Report{}, fmt.Errorf("scan ledger chain: %w", err)
	}

	for rows.Next() {
		var b ChainBreak

		err = rows.Scan(&b.BalanceID, &b.TransactionID, &b.ExpectedBefore, &b.ActualBefore)
		if err != nil {
			_ = rows.Close()
			return Report{}, fmt.Errorf("scan chain break: %w", err)
		}

		rep.Breaks = append(rep.Breaks, b)
	}

	err = rows.Err()
	_ = rows.Close()

	if err != nil {
		return Report{}, fmt.Errorf("iterate chain breaks: %w", err)
	}

	rows, err = c.db.QueryContext(ctx, driftQuery)
	if err != nil {
		return Report{}, fmt.Errorf("scan balance drift: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d Drift

		err = rows.Scan(&d.BalanceID, &d.Stored, &d.Ledger)
		if err != nil {
			return Report{}, fmt.Errorf("scan drift: %w", err)
		}

		rep.Drifts = append(rep.Drifts, d)
	}

	err = rows.Err()
	if err != nil {
		return Report{}, fmt.Errorf("iterate drift: %w", err)
	}

	return rep, nil
}

// Run verifies once and reports violations through logs and metrics.
func (c *Checker) Run(ctx context.Context) {
	start := time.Now()

	rep, err := c.Verify(ctx)
	if err != nil {
		c.log.Error("ledger check failed", "error", err)
		return
	}

	for _, b := range rep.Breaks {
		c.log.Error("ledger chain break",
			"balance_id", b.BalanceID,
			"transaction_id", b.TransactionID,
			"expected_before", money.String(b.ExpectedBefore),
			"actual_before", money.String(b.ActualBefore),
		)
	}

	for _, d := range rep.Drifts {
		c.log.Error("balance drift",
			"balance_id", d.BalanceID,
			"stored", money.String(d.Stored),
			"ledger", money.String(d.Ledger),
		)
	}

	metrics.AddLedgerViolations(rep.Violations())
	c.log.Info("ledger check finished", "violations", rep.Violations(), "took", time.Since(start))
}

// Schedule registers Run on a cron spec ("@every 10m", "0 * * * *"). The
// caller starts and stops the returned scheduler.
func (c *Checker) Schedule(ctx context.Context, spec string, timeout time.Duration) (*cron.Cron, error) {
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := sched.AddFunc(spec, func() {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		c.Run(rctx)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule ledger check %q: %w", spec, err)
	}

	return sched, nil
}
