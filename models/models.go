// models/models.go
package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PlayerRecord 玩家在某个锦标赛合约中的记录
type PlayerRecord struct {
	Nickname      string   `json:"nickname"`
	Score         *big.Int `json:"score"`
	RemainingLife *big.Int `json:"remaining_life"`
}

// Empty reports whether the record is the contract's zero value.
func (p *PlayerRecord) Empty() bool {
	return p == nil || (p.Nickname == "" && isZero(p.Score) && isZero(p.RemainingLife))
}

// OrganizerProfile 组织者资料
type OrganizerProfile struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phone_number"`
	Balance     *big.Int `json:"balance"`
}

// Empty is true for an organizer still pending approval.
func (o *OrganizerProfile) Empty() bool {
	return o == nil || (o.Username == "" && o.Email == "" && o.PhoneNumber == "" && isZero(o.Balance))
}

// TournamentSummary is supplied by the listing component and never mutated here.
type TournamentSummary struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	ProfileImage    string         `json:"profile_image"`
	EndTime         time.Time      `json:"end_time"`
	PrizePool       *big.Int       `json:"prize_pool"`
	ContractAddress common.Address `json:"contract_address"`
}

// NotificationKind 通知类型
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationFailure NotificationKind = "failure"
)

// Notification is the payload pushed to the alert sink.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	Content    string           `json:"content"`
	Tournament common.Address   `json:"tournament,omitempty"`
	TxHash     string           `json:"tx_hash,omitempty"`
}

// Navigation asks the front-end to move to Route, optionally reloading the view.
type Navigation struct {
	Route  string `json:"route"`
	Reload bool   `json:"reload"`
}

func isZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}
