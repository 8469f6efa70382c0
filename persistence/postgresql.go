// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/tournament-client/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn(host, port, user, password, dbname))
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newPostgreSQL(db)
}

func newPostgreSQL(db *sql.DB) (*PostgreSQL, error) {
	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}
	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构, compatible with the gorm migration.
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS tx_records (
            id BIGSERIAL PRIMARY KEY,
            hash VARCHAR(66) UNIQUE NOT NULL,
            kind VARCHAR(32) NOT NULL,
            tournament VARCHAR(42) NOT NULL,
            account VARCHAR(42) NOT NULL,
            amount VARCHAR(80),
            status VARCHAR(16) NOT NULL,
            reason VARCHAR(512),
            resolved_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_tx_records_account ON tx_records(account)`)
	return err
}

func (p *PostgreSQL) RecordSubmitted(ctx context.Context, record models.TxRecord) error {
	status := record.Status
	if status == "" {
		status = models.TxPending
	}
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO tx_records (hash, kind, tournament, account, amount, status, reason)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (hash) DO NOTHING
    `, record.Hash, record.Kind, record.Tournament, record.Account, record.Amount, status, record.Reason)
	return err
}

func (p *PostgreSQL) RecordOutcome(ctx context.Context, hash string, status models.TxStatus, reason string) error {
	result, err := p.db.ExecContext(ctx, `
        UPDATE tx_records SET status = $2, reason = $3, resolved_at = $4, updated_at = CURRENT_TIMESTAMP
        WHERE hash = $1
    `, hash, status, reason, resolvedNow())
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

const selectRecord = `SELECT hash, kind, tournament, account, COALESCE(amount, ''), status,
        COALESCE(reason, ''), created_at, resolved_at FROM tx_records`

func scanRecord(row interface{ Scan(...interface{}) error }) (*models.TxRecord, error) {
	var r models.TxRecord
	var resolved sql.NullTime
	if err := row.Scan(&r.Hash, &r.Kind, &r.Tournament, &r.Account, &r.Amount, &r.Status,
		&r.Reason, &r.SubmittedAt, &resolved); err != nil {
		return nil, err
	}
	if resolved.Valid {
		r.ResolvedAt = &resolved.Time
	}
	return &r, nil
}

func (p *PostgreSQL) Get(ctx context.Context, hash string) (*models.TxRecord, error) {
	row := p.db.QueryRowContext(ctx, selectRecord+` WHERE hash = $1 AND deleted_at IS NULL`, hash)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return r, err
}

func (p *PostgreSQL) ListByAccount(ctx context.Context, account string, limit int) ([]models.TxRecord, error) {
	rows, err := p.db.QueryContext(ctx, selectRecord+`
        WHERE account = $1 AND deleted_at IS NULL ORDER BY created_at DESC LIMIT $2`, account, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TxRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("persistence: scan tx record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
