package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model 以 UUIDv7 为主键的基础模型，主键随创建时间递增
type Model struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate 未设置主键时生成 UUIDv7
func (m *Model) BeforeCreate(*gorm.DB) error {
	if m.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

// AppMetadata 应用级键值元数据，与内嵌迁移创建的 app_metadata 表结构一致。
// 没有迁移文件的驱动（sqlite）通过 Models{&AppMetadata{}} 建表。
type AppMetadata struct {
	Key       string    `gorm:"primaryKey;size:255" json:"key"`
	Value     string    `gorm:"type:text;not null;default:''" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 固定表名
func (AppMetadata) TableName() string {
	return "app_metadata"
}
