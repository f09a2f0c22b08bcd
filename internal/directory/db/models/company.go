// Package models contains the persistence records of the directory service,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is a row of the companies table. NormalizedName carries the
// uniqueness constraint that serializes concurrent creation.
type Company struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name           string         `gorm:"size:200;not null"`
	NormalizedName string         `gorm:"size:200;not null;uniqueIndex"`
	Status         string         `gorm:"size:16;not null;default:active;index"`
	MemberCount    int            `gorm:"not null;default:0;check:member_count >= 0"`
	Aliases        []CompanyAlias `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CompanyAlias is an alternative spelling attached to a company.
type CompanyAlias struct {
	ID             uint      `gorm:"primaryKey"`
	CompanyID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_company_alias"`
	Name           string    `gorm:"size:200;not null"`
	NormalizedName string    `gorm:"size:200;not null;uniqueIndex:idx_company_alias;index"`
	CreatedAt      time.Time
}
