package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"uncomtrade/internal/model"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) UpsertRecords(ctx context.Context, records []model.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trade_records (
			period, reporter_code, partner_code, flow_code, commodity_code,
			trade_value, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(period, reporter_code, partner_code, flow_code, commodity_code)
		DO UPDATE SET
			trade_value = excluded.trade_value,
			ingested_at = excluded.ingested_at
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range records {
		record := records[i]
		_, err = stmt.ExecContext(
			ctx,
			record.Period,
			record.ReporterCode,
			record.PartnerCode,
			record.FlowCode,
			record.CommodityCode,
			record.TradeValue,
			now,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, reporterCode, partnerCode string) ([]model.TradeRecord, error) {
	query := `
		SELECT period, reporter_code, partner_code, flow_code, commodity_code, trade_value
		FROM trade_records
	`
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if reporterCode != "" {
		conditions = append(conditions, "reporter_code = ?")
		args = append(args, reporterCode)
	}
	if partnerCode != "" {
		conditions = append(conditions, "partner_code = ?")
		args = append(args, partnerCode)
	}
	for i, condition := range conditions {
		if i == 0 {
			query += " WHERE " + condition
		} else {
			query += " AND " + condition
		}
	}
	query += " ORDER BY period, reporter_code, partner_code, flow_code, commodity_code"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.TradeRecord, 0)
	for rows.Next() {
		var record model.TradeRecord
		if err := rows.Scan(
			&record.Period,
			&record.ReporterCode,
			&record.PartnerCode,
			&record.FlowCode,
			&record.CommodityCode,
			&record.TradeValue,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS trade_records (
			period TEXT NOT NULL,
			reporter_code TEXT NOT NULL,
			partner_code TEXT NOT NULL,
			flow_code TEXT NOT NULL,
			commodity_code TEXT NOT NULL,
			trade_value REAL NOT NULL,
			ingested_at TEXT NOT NULL,
			PRIMARY KEY (period, reporter_code, partner_code, flow_code, commodity_code)
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}
