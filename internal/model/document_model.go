package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type Document struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Collection string          `gorm:"type:varchar(64);not null;index"`
	Content    string          `gorm:"type:text;not null"`
	Embedding  pgvector.Vector `gorm:"type:vector(1536)"` // text-embedding-3-small uses 1536 dimensions
	CaseNumber string          `gorm:"type:varchar(64);index"`
	Court      string          `gorm:"type:varchar(128)"`
	Article    string          `gorm:"type:varchar(64);index"`
	Page       int             `gorm:"default:0"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt  `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
