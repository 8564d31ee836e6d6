package worksite

import (
	"context"

	"hirehall/bizerror"
	"hirehall/idgen"
	"hirehall/persistence"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const (
	SiteTypePitStop      = "pitstop"
	SiteTypeSpecialEvent = "special_event"
	SiteTypeOther        = "other"
)

// WorkSite is a physical dispatch location with a per-shift worker capacity.
type WorkSite struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Name         string `json:"name" gorm:"unique_index:uni_work_site_name"`
	SiteType     string `json:"siteType"`
	Address      string `json:"address"`
	Neighborhood string `json:"neighborhood"`

	SupervisorName  string `json:"supervisorName"`
	SupervisorPhone string `json:"supervisorPhone"`
	SupervisorEmail string `json:"supervisorEmail"`

	TypicalStartTime   string `json:"typicalStartTime"`
	TypicalEndTime     string `json:"typicalEndTime"`
	AvailableTimeSlots string `json:"availableTimeSlots" sql:"type:TEXT"` // JSON list, e.g. ["6-12","13-21"]
	MaxWorkersPerShift int    `json:"maxWorkersPerShift"`

	IsActive bool   `json:"isActive"`
	Notes    string `json:"notes" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type WorkSiteCreation struct {
	Name         string `json:"name" binding:"required,lte=200"`
	SiteType     string `json:"siteType" binding:"omitempty,oneof=pitstop special_event other"`
	Address      string `json:"address" binding:"required,lte=300"`
	Neighborhood string `json:"neighborhood" binding:"lte=100"`

	SupervisorName  string `json:"supervisorName" binding:"lte=100"`
	SupervisorPhone string `json:"supervisorPhone" binding:"lte=20"`
	SupervisorEmail string `json:"supervisorEmail" binding:"omitempty,email"`

	TypicalStartTime   string `json:"typicalStartTime" binding:"required,datetime=15:04"`
	TypicalEndTime     string `json:"typicalEndTime" binding:"required,datetime=15:04"`
	AvailableTimeSlots string `json:"availableTimeSlots"`
	MaxWorkersPerShift int    `json:"maxWorkersPerShift" binding:"omitempty,gte=1"`

	Notes string `json:"notes"`
}

type WorkSiteUpdating struct {
	Address      string `json:"address" binding:"omitempty,lte=300"`
	Neighborhood string `json:"neighborhood" binding:"lte=100"`

	SupervisorName  string `json:"supervisorName" binding:"lte=100"`
	SupervisorPhone string `json:"supervisorPhone" binding:"lte=20"`
	SupervisorEmail string `json:"supervisorEmail" binding:"omitempty,email"`

	TypicalStartTime   string `json:"typicalStartTime" binding:"omitempty,datetime=15:04"`
	TypicalEndTime     string `json:"typicalEndTime" binding:"omitempty,datetime=15:04"`
	AvailableTimeSlots string `json:"availableTimeSlots"`
	MaxWorkersPerShift int    `json:"maxWorkersPerShift" binding:"omitempty,gte=1"`

	Notes string `json:"notes"`
}

type WorkSiteQuery struct {
	ActiveOnly bool `json:"activeOnly" form:"activeOnly"`
}

var (
	workSiteIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateWorkSiteFunc     = CreateWorkSite
	QueryWorkSitesFunc     = QueryWorkSites
	DetailWorkSiteFunc     = DetailWorkSite
	UpdateWorkSiteFunc     = UpdateWorkSite
	DeactivateWorkSiteFunc = DeactivateWorkSite
)

func CreateWorkSite(c *WorkSiteCreation, sec *session.Session) (*WorkSite, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	record := WorkSite{
		ID:   idgen.NextID(workSiteIdWorker),
		Name: c.Name, SiteType: c.SiteType, Address: c.Address, Neighborhood: c.Neighborhood,
		SupervisorName: c.SupervisorName, SupervisorPhone: c.SupervisorPhone, SupervisorEmail: c.SupervisorEmail,
		TypicalStartTime: c.TypicalStartTime, TypicalEndTime: c.TypicalEndTime,
		AvailableTimeSlots: c.AvailableTimeSlots, MaxWorkersPerShift: c.MaxWorkersPerShift,
		IsActive: true, Notes: c.Notes,
		CreateTime: types.CurrentTimestamp(),
	}
	if record.SiteType == "" {
		record.SiteType = SiteTypePitStop
	}
	if record.MaxWorkersPerShift == 0 {
		record.MaxWorkersPerShift = 2
	}
	if err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func QueryWorkSites(q WorkSiteQuery, ctx context.Context) ([]WorkSite, error) {
	records := []WorkSite{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	query := db.Order("name ASC")
	if q.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailWorkSite(id types.ID, ctx context.Context) (*WorkSite, error) {
	record := WorkSite{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where(&WorkSite{ID: id}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateWorkSite(id types.ID, u *WorkSiteUpdating, sec *session.Session) (*WorkSite, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	updated := WorkSite{}
	err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		record := WorkSite{}
		if err := tx.Where(&WorkSite{ID: id}).First(&record).Error; err != nil {
			return err
		}
		changes := map[string]interface{}{}
		if u.Address != "" {
			changes["address"] = u.Address
		}
		if u.Neighborhood != "" {
			changes["neighborhood"] = u.Neighborhood
		}
		if u.SupervisorName != "" {
			changes["supervisor_name"] = u.SupervisorName
		}
		if u.SupervisorPhone != "" {
			changes["supervisor_phone"] = u.SupervisorPhone
		}
		if u.SupervisorEmail != "" {
			changes["supervisor_email"] = u.SupervisorEmail
		}
		if u.TypicalStartTime != "" {
			changes["typical_start_time"] = u.TypicalStartTime
		}
		if u.TypicalEndTime != "" {
			changes["typical_end_time"] = u.TypicalEndTime
		}
		if u.AvailableTimeSlots != "" {
			changes["available_time_slots"] = u.AvailableTimeSlots
		}
		if u.MaxWorkersPerShift > 0 {
			changes["max_workers_per_shift"] = u.MaxWorkersPerShift
		}
		if u.Notes != "" {
			changes["notes"] = u.Notes
		}
		if len(changes) > 0 {
			if err := tx.Model(&WorkSite{}).Where("id = ?", id).Updates(changes).Error; err != nil {
				return err
			}
		}
		return tx.Where(&WorkSite{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeactivateWorkSite soft-disables a site; existing assignments keep their reference.
func DeactivateWorkSite(id types.ID, sec *session.Session) error {
	if sec == nil {
		return bizerror.ErrForbidden
	}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	result := db.Model(&WorkSite{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bizerror.ErrNotFound
	}
	return nil
}
