// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/tournament-client/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	return openGorm(postgres.Open(dsn(host, port, user, password, dbname)))
}

func openGorm(dialector gorm.Dialector) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormTxRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) RecordSubmitted(ctx context.Context, record models.TxRecord) error {
	status := record.Status
	if status == "" {
		status = models.TxPending
	}
	row := models.GormTxRecord{
		Hash:       record.Hash,
		Kind:       record.Kind,
		Tournament: record.Tournament,
		Account:    record.Account,
		Amount:     record.Amount,
		Status:     status,
		Reason:     record.Reason,
	}
	// a resubmitted hash keeps its first row
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (p *GormPostgreSQL) RecordOutcome(ctx context.Context, hash string, status models.TxStatus, reason string) error {
	result := p.db.WithContext(ctx).Model(&models.GormTxRecord{}).
		Where("hash = ?", hash).
		Updates(map[string]interface{}{
			"status":      status,
			"reason":      reason,
			"resolved_at": resolvedNow(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *GormPostgreSQL) Get(ctx context.Context, hash string) (*models.TxRecord, error) {
	var row models.GormTxRecord
	if err := p.db.WithContext(ctx).Where("hash = ?", hash).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	record := row.ToRecord()
	return &record, nil
}

func (p *GormPostgreSQL) ListByAccount(ctx context.Context, account string, limit int) ([]models.TxRecord, error) {
	var rows []models.GormTxRecord
	err := p.db.WithContext(ctx).
		Where("account = ?", account).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.TxRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.ToRecord())
	}
	return records, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
