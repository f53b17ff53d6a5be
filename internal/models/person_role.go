package models

// PersonRole holds the reporting person's relationship to the issuer as
// declared on a filing. Read-only scoring context, owned by the ingest
// service.
type PersonRole struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	FilingID uint64 `gorm:"not null;uniqueIndex:idx_role_filing_person"`
	PersonID string `gorm:"type:varchar(20);not null;uniqueIndex:idx_role_filing_person"`

	IsOfficer     bool   `gorm:"not null;default:false"`
	IsDirector    bool   `gorm:"not null;default:false"`
	IsTenPercent  bool   `gorm:"column:is_ten_percent_owner;not null;default:false"`
	OfficerTitle  string `gorm:"type:varchar(200)"`
	OtherRelation string `gorm:"type:varchar(200)"`
}

func (PersonRole) TableName() string {
	return "filing_person_roles"
}
