package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"kite-levels-trader/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Open position snapshots, replaced wholesale on every mutation
	CREATE TABLE IF NOT EXISTS positions (
		token INTEGER PRIMARY KEY,
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		strategy TEXT NOT NULL,
		instrument TEXT NOT NULL,
		entry_price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		stop_loss REAL NOT NULL,
		targets TEXT,
		trailing TEXT,
		entry_level REAL,
		entry_time DATETIME NOT NULL,
		status TEXT NOT NULL,
		atr REAL,
		activation_mult REAL,
		trail_mult REAL,
		opposite_level REAL,
		saved_at DATETIME NOT NULL
	);

	-- Per-day risk state
	CREATE TABLE IF NOT EXISTS risk_state (
		date TEXT PRIMARY KEY,
		daily_pnl REAL NOT NULL,
		halted INTEGER NOT NULL,
		halt_reason TEXT
	);

	-- Completed trades, full and partial exits
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		strategy TEXT,
		action TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		pnl REAL NOT NULL,
		reason TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SavePositions replaces the saved position set in one transaction.
func (s *SQLiteStore) SavePositions(ctx context.Context, snapshots []PositionSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM positions"); err != nil {
		return fmt.Errorf("clear positions: %w", err)
	}

	for _, snap := range snapshots {
		instrument, err := json.Marshal(snap.Position.Instrument)
		if err != nil {
			return fmt.Errorf("marshal instrument: %w", err)
		}
		targets, err := json.Marshal(snap.Position.Targets)
		if err != nil {
			return fmt.Errorf("marshal targets: %w", err)
		}
		trailing, err := json.Marshal(snap.Position.Trailing)
		if err != nil {
			return fmt.Errorf("marshal trailing: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO positions (
				token, symbol, exchange, strategy, instrument,
				entry_price, quantity, stop_loss, targets, trailing,
				entry_level, entry_time, status,
				atr, activation_mult, trail_mult, opposite_level, saved_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.Position.Instrument.Token,
			snap.Position.Instrument.Symbol,
			string(snap.Position.Instrument.Exchange),
			snap.Position.Strategy,
			string(instrument),
			snap.Position.EntryPrice,
			snap.Position.Quantity,
			snap.Position.StopLoss,
			string(targets),
			string(trailing),
			snap.Position.EntryLevel,
			snap.Position.EntryTime.Format(time.RFC3339),
			string(snap.Position.Status),
			snap.ATR,
			snap.ActivationMult,
			snap.TrailMult,
			snap.OppositeLevel,
			snap.SavedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("insert position: %w", err)
		}
	}

	return tx.Commit()
}

// LoadPositions returns the saved open-position set.
func (s *SQLiteStore) LoadPositions(ctx context.Context) ([]PositionSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, instrument, entry_price, quantity, stop_loss,
		       targets, trailing, entry_level, entry_time, status,
		       atr, activation_mult, trail_mult, opposite_level, saved_at
		FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var snapshots []PositionSnapshot
	for rows.Next() {
		var snap PositionSnapshot
		var instrument, targets, trailing, entryTime, status, savedAt string

		err := rows.Scan(
			&snap.Position.Strategy, &instrument,
			&snap.Position.EntryPrice, &snap.Position.Quantity, &snap.Position.StopLoss,
			&targets, &trailing, &snap.Position.EntryLevel, &entryTime, &status,
			&snap.ATR, &snap.ActivationMult, &snap.TrailMult, &snap.OppositeLevel, &savedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}

		if err := json.Unmarshal([]byte(instrument), &snap.Position.Instrument); err != nil {
			return nil, fmt.Errorf("unmarshal instrument: %w", err)
		}
		if err := json.Unmarshal([]byte(targets), &snap.Position.Targets); err != nil {
			return nil, fmt.Errorf("unmarshal targets: %w", err)
		}
		if err := json.Unmarshal([]byte(trailing), &snap.Position.Trailing); err != nil {
			return nil, fmt.Errorf("unmarshal trailing: %w", err)
		}
		snap.Position.Status = models.PositionStatus(status)
		if snap.Position.EntryTime, err = time.Parse(time.RFC3339, entryTime); err != nil {
			return nil, fmt.Errorf("parse entry time: %w", err)
		}
		if snap.SavedAt, err = time.Parse(time.RFC3339, savedAt); err != nil {
			return nil, fmt.Errorf("parse saved_at: %w", err)
		}

		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// SaveRiskState upserts the risk state for its trading day.
func (s *SQLiteStore) SaveRiskState(ctx context.Context, snap RiskSnapshot) error {
	halted := 0
	if snap.Halted {
		halted = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_state (date, daily_pnl, halted, halt_reason)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			daily_pnl = excluded.daily_pnl,
			halted = excluded.halted,
			halt_reason = excluded.halt_reason`,
		snap.Date, snap.DailyPnL, halted, snap.HaltReason)
	if err != nil {
		return fmt.Errorf("save risk state: %w", err)
	}
	return nil
}

// LoadRiskState returns the risk state for a trading day, if present.
func (s *SQLiteStore) LoadRiskState(ctx context.Context, date string) (RiskSnapshot, bool, error) {
	var snap RiskSnapshot
	var halted int

	err := s.db.QueryRowContext(ctx,
		"SELECT date, daily_pnl, halted, halt_reason FROM risk_state WHERE date = ?", date).
		Scan(&snap.Date, &snap.DailyPnL, &halted, &snap.HaltReason)
	if err == sql.ErrNoRows {
		return RiskSnapshot{}, false, nil
	}
	if err != nil {
		return RiskSnapshot{}, false, fmt.Errorf("load risk state: %w", err)
	}
	snap.Halted = halted != 0
	return snap, true, nil
}

// LogTrade appends a completed trade to the log.
func (s *SQLiteStore) LogTrade(ctx context.Context, trade models.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (timestamp, symbol, exchange, strategy, action, quantity, entry_price, exit_price, pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.Time.Format(time.RFC3339),
		trade.Symbol,
		string(trade.Exchange),
		trade.Strategy,
		string(trade.Action),
		trade.Quantity,
		trade.EntryPrice,
		trade.ExitPrice,
		trade.PnL,
		string(trade.Reason),
	)
	if err != nil {
		return fmt.Errorf("log trade: %w", err)
	}
	return nil
}

// GetTrades returns trades in [from, to], oldest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, from, to time.Time) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, symbol, exchange, strategy, action, quantity, entry_price, exit_price, pnl, reason
		FROM trades
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`,
		from.Format(time.RFC3339), to.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var ts, exchange, action, reason string

		err := rows.Scan(&ts, &t.Symbol, &exchange, &t.Strategy, &action,
			&t.Quantity, &t.EntryPrice, &t.ExitPrice, &t.PnL, &reason)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		if t.Time, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("parse trade timestamp: %w", err)
		}
		t.Exchange = models.Exchange(exchange)
		t.Action = models.TradeAction(action)
		t.Reason = models.ExitReason(reason)

		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
