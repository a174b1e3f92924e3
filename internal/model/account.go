package model

import "time"

// Account 账户表，对应 types.DBAccount
type Account struct {
	ID        string    `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Type      string    `gorm:"type:varchar(20);not null" json:"type"` // simple, variant
	Path      string    `gorm:"type:varchar(255)" json:"path"`
	CoinType  string    `gorm:"type:varchar(20);not null" json:"coin_type"`
	Pub       string    `gorm:"type:varchar(255)" json:"pub"`
	Address   string    `gorm:"type:varchar(255);index" json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Addresses []AccountAddress `gorm:"foreignKey:AccountID" json:"addresses,omitempty"`
}

// AccountAddress 每个网络下懒加载补全的地址，(account_id, network_id) 唯一
type AccountAddress struct {
	AccountID string    `gorm:"primaryKey;type:varchar(255)" json:"account_id"`
	NetworkID string    `gorm:"primaryKey;type:varchar(64)" json:"network_id"`
	Address   string    `gorm:"type:varchar(255);not null" json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

func (Account) TableName() string {
	return "vault_accounts"
}

func (AccountAddress) TableName() string {
	return "vault_account_addresses"
}
