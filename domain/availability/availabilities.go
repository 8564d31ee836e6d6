package availability

import (
	"context"

	"hirehall/idgen"
	"hirehall/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var DaysOfWeek = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// ClientAvailability is a per-client weekly availability preference,
// unique per (client, day of week).
type ClientAvailability struct {
	ID       types.ID `json:"id" gorm:"primary_key"`
	ClientID types.ID `json:"clientId" gorm:"unique_index:uni_availability_client_day"`

	DayOfWeek          string `json:"dayOfWeek" gorm:"unique_index:uni_availability_client_day"`
	Available          bool   `json:"available"`
	PreferredTimeSlots string `json:"preferredTimeSlots" sql:"type:TEXT"` // JSON list, e.g. ["6-12","13-21"]
	Notes              string `json:"notes" sql:"type:TEXT"`
}

type AvailabilityUpdating struct {
	DayOfWeek          string `json:"dayOfWeek" binding:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Available          bool   `json:"available"`
	PreferredTimeSlots string `json:"preferredTimeSlots"`
	Notes              string `json:"notes"`
}

var (
	availabilityIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryAvailabilitiesFunc  = QueryAvailabilities
	UpsertAvailabilitiesFunc = UpsertAvailabilities
)

func QueryAvailabilities(clientID types.ID, ctx context.Context) ([]ClientAvailability, error) {
	records := []ClientAvailability{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where("client_id = ?", clientID).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// UpsertAvailabilities updates or creates one record per submitted day of week
// and returns the client's full availability afterwards.
func UpsertAvailabilities(clientID types.ID, updates []AvailabilityUpdating, ctx context.Context) ([]ClientAvailability, error) {
	err := persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			record := ClientAvailability{}
			err := tx.Where(&ClientAvailability{ClientID: clientID, DayOfWeek: u.DayOfWeek}).First(&record).Error
			if err == gorm.ErrRecordNotFound {
				record = ClientAvailability{
					ID:       idgen.NextID(availabilityIdWorker),
					ClientID: clientID, DayOfWeek: u.DayOfWeek,
					Available: u.Available, PreferredTimeSlots: u.PreferredTimeSlots, Notes: u.Notes,
				}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			changes := map[string]interface{}{
				"available":            u.Available,
				"preferred_time_slots": u.PreferredTimeSlots,
				"notes":                u.Notes,
			}
			if err := tx.Model(&ClientAvailability{}).Where("id = ?", record.ID).Updates(changes).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return QueryAvailabilitiesFunc(clientID, ctx)
}
