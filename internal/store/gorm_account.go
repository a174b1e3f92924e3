package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chain-vault/internal/model"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

// GormAccountStore 基于 gorm 的账户存储 (PostgreSQL)
type GormAccountStore struct {
	db *gorm.DB
}

func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

// AutoMigrate 创建 / 更新表结构
func (s *GormAccountStore) AutoMigrate() error {
	return s.db.AutoMigrate(model.AllModels()...)
}

func (s *GormAccountStore) GetAccount(ctx context.Context, accountID string) (*types.DBAccount, error) {
	var m model.Account
	err := s.db.WithContext(ctx).Preload("Addresses").First(&m, "id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.AccountNotFound.WithMessage("account not found: %s", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return toDBAccount(m), nil
}

func (s *GormAccountStore) AddAccountAddress(ctx context.Context, accountID, networkID, address string) (*types.DBAccount, error) {
	// 已存在时保持原值
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model.AccountAddress{
		AccountID: accountID,
		NetworkID: networkID,
		Address:   address,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return s.GetAccount(ctx, accountID)
}

func (s *GormAccountStore) AddAccounts(ctx context.Context, accounts []types.DBAccount) error {
	if len(accounts) == 0 {
		return nil
	}
	rows := make([]model.Account, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, fromDBAccount(a))
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit("Addresses").Create(&rows).Error; err != nil {
			return err
		}
		for _, a := range accounts {
			for networkID, addr := range a.Addresses {
				err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.AccountAddress{
					AccountID: a.ID,
					NetworkID: networkID,
					Address:   addr,
				}).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return nil
}

func toDBAccount(m model.Account) *types.DBAccount {
	a := &types.DBAccount{
		ID:       m.ID,
		Name:     m.Name,
		Type:     types.AccountType(m.Type),
		Path:     m.Path,
		CoinType: m.CoinType,
		Pub:      m.Pub,
		Address:  m.Address,
	}
	if len(m.Addresses) > 0 {
		a.Addresses = make(map[string]string, len(m.Addresses))
		for _, addr := range m.Addresses {
			a.Addresses[addr.NetworkID] = addr.Address
		}
	}
	return a
}

func fromDBAccount(a types.DBAccount) model.Account {
	return model.Account{
		ID:       a.ID,
		Name:     a.Name,
		Type:     string(a.Type),
		Path:     a.Path,
		CoinType: a.CoinType,
		Pub:      a.Pub,
		Address:  a.Address,
	}
}
