// pkg/model/directory.go
package model

import (
	"time"
)

// DirectoryEntry 交易所符号目录中的一条记录
type DirectoryEntry struct {
	Symbol    string    `gorm:"type:varchar(10);primaryKey" json:"symbol"`
	Name      string    `gorm:"not null" json:"name"`
	Exchange  string    `gorm:"type:varchar(16);index" json:"exchange"`
	IsETF     bool      `gorm:"index" json:"isETF"`
	UpdatedAt time.Time `json:"-"`
}

// TableName 指定镜像表名
func (DirectoryEntry) TableName() string {
	return "symbol_directory"
}
