// persistence/ledger.go
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/tournament-client/config"
	"github.com/wfunc/tournament-client/models"
)

// Ledger 交易账本: every submitted write and how it ended.
type Ledger interface {
	RecordSubmitted(ctx context.Context, record models.TxRecord) error
	RecordOutcome(ctx context.Context, hash string, status models.TxStatus, reason string) error
	Get(ctx context.Context, hash string) (*models.TxRecord, error)
	ListByAccount(ctx context.Context, account string, limit int) ([]models.TxRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

const defaultListLimit = 50

// Open picks the ledger implementation named by cfg.Driver. "none" yields a nil
// Ledger and no error.
func Open(cfg config.DatabaseConfig) (Ledger, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sql":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("persistence: unknown driver %q", cfg.Driver)
	}
}

func dsn(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func resolvedNow() *time.Time {
	now := time.Now().UTC()
	return &now
}
