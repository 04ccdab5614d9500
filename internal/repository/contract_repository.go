package repository

import (
	"errors"

	"github.com/HPNChanel/contract-generator/internal/model"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("contract not found")

// ContractRepository 合同仓储接口
type ContractRepository interface {
	Create(contract *model.ContractModel) error
	FindByID(id uint) (*model.ContractModel, error)
	FindAll(offset, limit int) ([]*model.ContractModel, error)
	Count() (int64, error)
	Update(contract *model.ContractModel) error
	Delete(id uint) (bool, error)
}

// contractRepository 合同仓储实现
type contractRepository struct {
	db *gorm.DB
}

// NewContractRepository 创建合同仓储
func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

// Create 创建合同记录,由数据库分配自增 ID
func (r *contractRepository) Create(contract *model.ContractModel) error {
	return r.db.Create(contract).Error
}

// FindByID 根据 ID 查找合同
func (r *contractRepository) FindByID(id uint) (*model.ContractModel, error) {
	var contract model.ContractModel
	if err := r.db.First(&contract, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &contract, nil
}

// FindAll 分页查找合同,按创建时间正序
func (r *contractRepository) FindAll(offset, limit int) ([]*model.ContractModel, error) {
	var contracts []*model.ContractModel
	err := r.db.Order("id ASC").Offset(offset).Limit(limit).Find(&contracts).Error
	return contracts, err
}

// Count 合同总数
func (r *contractRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.ContractModel{}).Count(&count).Error
	return count, err
}

// Update 保存合同更新
func (r *contractRepository) Update(contract *model.ContractModel) error {
	return r.db.Save(contract).Error
}

// Delete 删除合同,返回是否实际删除了记录
func (r *contractRepository) Delete(id uint) (bool, error) {
	result := r.db.Delete(&model.ContractModel{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
