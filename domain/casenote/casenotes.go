package casenote

import (
	"time"

	"hirehall/bizerror"
	"hirehall/idgen"
	"hirehall/persistence"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

// CaseNote records one staff interaction with a client.
type CaseNote struct {
	ID       types.ID `json:"id" gorm:"primary_key"`
	ClientID types.ID `json:"clientId" gorm:"index:idx_case_note_client"`

	StaffMember  string `json:"staffMember"`
	NoteType     string `json:"noteType"`
	Content      string `json:"content" sql:"type:TEXT"`
	NextSteps    string `json:"nextSteps" sql:"type:TEXT"`
	FollowUpDate string `json:"followUpDate" sql:"type:DATE"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

type CaseNoteDetail struct {
	CaseNote
	IsOverdueFollowUp bool `json:"isOverdueFollowUp"`
}

// IsOverdueFollowUp reports whether the follow-up date has passed.
func (n *CaseNote) IsOverdueFollowUp(today string) bool {
	return n.FollowUpDate != "" && today > n.FollowUpDate
}

type CaseNoteCreation struct {
	ClientID types.ID `json:"clientId"`

	NoteType     string `json:"noteType" binding:"required,oneof=intake follow_up training job_search placement barrier referral general"`
	Content      string `json:"content" binding:"required"`
	NextSteps    string `json:"nextSteps"`
	FollowUpDate string `json:"followUpDate" binding:"omitempty,datetime=2006-01-02"`
}

type CaseNoteUpdating struct {
	NoteType     string `json:"noteType" binding:"omitempty,oneof=intake follow_up training job_search placement barrier referral general"`
	Content      string `json:"content"`
	NextSteps    string `json:"nextSteps"`
	FollowUpDate string `json:"followUpDate" binding:"omitempty,datetime=2006-01-02"`
}

var (
	caseNoteIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateCaseNoteFunc = CreateCaseNote
	QueryCaseNotesFunc = QueryCaseNotes
	UpdateCaseNoteFunc = UpdateCaseNote
	DeleteCaseNoteFunc = DeleteCaseNote
)

func CreateCaseNote(c *CaseNoteCreation, sec *session.Session) (*CaseNote, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	now := types.CurrentTimestamp()
	record := CaseNote{
		ID:       idgen.NextID(caseNoteIdWorker),
		ClientID: c.ClientID,

		StaffMember: sec.Identity.Name,
		NoteType:    c.NoteType, Content: c.Content,
		NextSteps: c.NextSteps, FollowUpDate: c.FollowUpDate,

		CreateTime: now, UpdateTime: now,
	}
	if err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func QueryCaseNotes(clientID types.ID, sec *session.Session) ([]CaseNoteDetail, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	records := []CaseNote{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	if err := db.Where("client_id = ?", clientID).Order("create_time DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	today := time.Now().Format("2006-01-02")
	details := make([]CaseNoteDetail, 0, len(records))
	for _, r := range records {
		details = append(details, CaseNoteDetail{CaseNote: r, IsOverdueFollowUp: r.IsOverdueFollowUp(today)})
	}
	return details, nil
}

func UpdateCaseNote(id types.ID, u *CaseNoteUpdating, sec *session.Session) (*CaseNote, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	updated := CaseNote{}
	err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		record := CaseNote{}
		if err := tx.Where(&CaseNote{ID: id}).First(&record).Error; err != nil {
			return err
		}
		changes := map[string]interface{}{"update_time": types.CurrentTimestamp()}
		if u.NoteType != "" {
			changes["note_type"] = u.NoteType
		}
		if u.Content != "" {
			changes["content"] = u.Content
		}
		if u.NextSteps != "" {
			changes["next_steps"] = u.NextSteps
		}
		if u.FollowUpDate != "" {
			changes["follow_up_date"] = u.FollowUpDate
		}
		if err := tx.Model(&CaseNote{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where(&CaseNote{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func DeleteCaseNote(id types.ID, sec *session.Session) error {
	if sec == nil {
		return bizerror.ErrForbidden
	}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	return db.Delete(CaseNote{}, "id = ?", id).Error
}
