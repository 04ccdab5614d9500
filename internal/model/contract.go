package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ContractModel 合同数据模型
type ContractModel struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	ContractType string    `gorm:"type:varchar(255);not null"`
	Data         []byte    `gorm:"type:text;not null"` // 序列化后的 ContractData 对象
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName 指定表名
func (ContractModel) TableName() string {
	return "contracts"
}

// Party 合同签署方信息
// 必填约束不放在绑定标签上,由载荷校验统一收集缺失字段
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// ContractData 合同载荷
// 以 JSON 形式持久化在 ContractModel.Data 中,存储层不解释其内容,
// 渲染层负责解释
type ContractData struct {
	ContractType      string   `json:"contract_type"`
	PartyA            Party    `json:"party_a"`
	PartyB            Party    `json:"party_b"`
	Terms             string   `json:"terms"`
	StartDate         string   `json:"start_date"`
	EndDate           string   `json:"end_date"`
	AdditionalClauses []string `json:"additional_clauses,omitempty"`
	SignatureImage    string   `json:"signature_image,omitempty"` // base64 data URI,可选
}

// ValidationError 载荷校验错误
// 一次性收集所有缺失/为空的必填字段,而不是只报告第一个
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Validate 校验合同载荷的必填字段
// 必填: contract_type, party_a, party_b, terms, start_date, end_date,
// 以及 party_a.name 和 party_b.name 非空
func (d *ContractData) Validate() error {
	var missing []string

	if strings.TrimSpace(d.ContractType) == "" {
		missing = append(missing, "contract_type")
	}
	if d.PartyA == (Party{}) {
		missing = append(missing, "party_a")
	}
	if d.PartyB == (Party{}) {
		missing = append(missing, "party_b")
	}
	if strings.TrimSpace(d.Terms) == "" {
		missing = append(missing, "terms")
	}
	if strings.TrimSpace(d.StartDate) == "" {
		missing = append(missing, "start_date")
	}
	if strings.TrimSpace(d.EndDate) == "" {
		missing = append(missing, "end_date")
	}

	// 校验签署方名称
	if d.PartyA != (Party{}) && strings.TrimSpace(d.PartyA.Name) == "" {
		missing = append(missing, "party_a.name")
	}
	if d.PartyB != (Party{}) && strings.TrimSpace(d.PartyB.Name) == "" {
		missing = append(missing, "party_b.name")
	}

	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// ParseData 解析持久化的合同载荷
// 数据损坏时返回零值载荷,保持与列表/详情接口的容错语义一致
func (m *ContractModel) ParseData() ContractData {
	var data ContractData
	if len(m.Data) == 0 {
		return data
	}
	if err := json.Unmarshal(m.Data, &data); err != nil {
		return ContractData{}
	}
	return data
}

// EncodeData 序列化合同载荷
func (m *ContractModel) EncodeData(data ContractData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal contract data: %w", err)
	}
	m.Data = raw
	return nil
}
