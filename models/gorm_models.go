// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// TxStatus 交易状态
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxReverted  TxStatus = "reverted"
	TxRejected  TxStatus = "rejected"
)

// GormTxRecord 已提交交易记录
type GormTxRecord struct {
	gorm.Model
	Hash       string     `gorm:"uniqueIndex;size:66"`
	Kind       string     `gorm:"not null;size:32"`
	Tournament string     `gorm:"index;not null;size:42"`
	Account    string     `gorm:"index;not null;size:42"`
	Amount     string     `gorm:"size:80"` // base units, decimal string
	Status     TxStatus   `gorm:"not null;size:16"`
	Reason     string     `gorm:"size:512"`
	ResolvedAt *time.Time
}

func (GormTxRecord) TableName() string {
	return "tx_records"
}

// TxRecord is the driver-independent view of a ledger row.
type TxRecord struct {
	Hash        string     `json:"hash"`
	Kind        string     `json:"kind"`
	Tournament  string     `json:"tournament"`
	Account     string     `json:"account"`
	Amount      string     `json:"amount,omitempty"`
	Status      TxStatus   `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func (r GormTxRecord) ToRecord() TxRecord {
	return TxRecord{
		Hash:        r.Hash,
		Kind:        r.Kind,
		Tournament:  r.Tournament,
		Account:     r.Account,
		Amount:      r.Amount,
		Status:      r.Status,
		Reason:      r.Reason,
		SubmittedAt: r.CreatedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}
