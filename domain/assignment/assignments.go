package assignment

import (
	"context"
	"time"

	"hirehall/bizerror"
	"hirehall/domain/worksite"
	"hirehall/idgen"
	"hirehall/persistence"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusNoShow     = "no_show"
	StatusCalledOut  = "called_out"
	StatusCancelled  = "cancelled"

	FilterToday    = "today"
	FilterUpcoming = "upcoming"
	FilterPast     = "past"
)

// ActiveStatuses are the statuses which occupy a shift slot.
var ActiveStatuses = []string{StatusPending, StatusConfirmed, StatusInProgress}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusNoShow || status == StatusCancelled
}

// WorkAssignment schedules one client at one site for one date.
type WorkAssignment struct {
	ID       types.ID `json:"id" gorm:"primary_key"`
	ClientID types.ID `json:"clientId" gorm:"index:idx_assignment_client"`

	WorkSiteID     types.ID `json:"workSiteId" gorm:"index:idx_assignment_site_date"`
	AssignmentDate string   `json:"assignmentDate" gorm:"index:idx_assignment_site_date" sql:"type:DATE"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`

	Status            string          `json:"status" gorm:"index:idx_assignment_status"`
	ConfirmedByClient bool            `json:"confirmedByClient"`
	ConfirmedAt       types.Timestamp `json:"confirmedAt" sql:"type:DATETIME(6)"`

	AssignedBy      string `json:"assignedBy"`
	AssignmentNotes string `json:"assignmentNotes" sql:"type:TEXT"`

	CalledOutAt         types.Timestamp `json:"calledOutAt" sql:"type:DATETIME(6)"`
	CalloutReason       string          `json:"calloutReason" sql:"type:TEXT"`
	ReplacementFound    bool            `json:"replacementFound"`
	ReplacementClientID types.ID        `json:"replacementClientId"`

	HoursWorked      float64 `json:"hoursWorked"`
	PerformanceNotes string  `json:"performanceNotes" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

// NeedsReplacement is derived, never stored.
func (a *WorkAssignment) NeedsReplacement() bool {
	return a.Status == StatusCalledOut && !a.ReplacementFound
}

type AssignmentDetail struct {
	WorkAssignment
	NeedsReplacement bool `json:"needsReplacement"`
}

// CallOutLog is the append-only record of a call-out, one per assignment.
type CallOutLog struct {
	ID           types.ID `json:"id" gorm:"primary_key"`
	AssignmentID types.ID `json:"assignmentId" gorm:"unique_index:uni_call_out_log_assignment"`

	ReportedAt         types.Timestamp `json:"reportedAt" sql:"type:DATETIME(6) NOT NULL"`
	ReportedBy         string          `json:"reportedBy"`
	Reason             string          `json:"reason" sql:"type:TEXT"`
	AdvanceNoticeHours int             `json:"advanceNoticeHours"`

	ReplacementContactedCount int             `json:"replacementContactedCount"`
	ReplacementFoundAt        types.Timestamp `json:"replacementFoundAt" sql:"type:DATETIME(6)"`

	ClientContactedAfter bool   `json:"clientContactedAfter"`
	FollowUpNotes        string `json:"followUpNotes" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

// IsLastMinute reports whether less than four hours notice was given.
func (l *CallOutLog) IsLastMinute() bool {
	return l.AdvanceNoticeHours < 4
}

type CallOutLogDetail struct {
	CallOutLog
	IsLastMinute bool `json:"isLastMinute"`
}

type AssignmentCreation struct {
	ClientID   types.ID `json:"clientId" binding:"required"`
	WorkSiteID types.ID `json:"workSiteId" binding:"required"`

	AssignmentDate  string `json:"assignmentDate" binding:"required,datetime=2006-01-02"`
	StartTime       string `json:"startTime" binding:"required,datetime=15:04"`
	EndTime         string `json:"endTime" binding:"required,datetime=15:04"`
	AssignmentNotes string `json:"assignmentNotes"`
}

type AssignmentQuery struct {
	ClientID   types.ID `json:"clientId" form:"clientId"`
	WorkSiteID types.ID `json:"workSiteId" form:"workSiteId"`
	Status     string   `json:"status" form:"status" binding:"omitempty,oneof=pending confirmed in_progress completed no_show called_out cancelled"`
	DateBegin  string   `json:"dateBegin" form:"dateBegin" binding:"omitempty,datetime=2006-01-02"`
	DateEnd    string   `json:"dateEnd" form:"dateEnd" binding:"omitempty,datetime=2006-01-02"`
	Filter     string   `json:"filter" form:"filter" binding:"omitempty,oneof=today upcoming past"`
}

type StatusUpdating struct {
	Status           string  `json:"status" binding:"required,oneof=pending confirmed in_progress completed no_show cancelled"`
	HoursWorked      float64 `json:"hoursWorked" binding:"omitempty,gte=0,lte=24"`
	PerformanceNotes string  `json:"performanceNotes"`
}

type CallOutCreation struct {
	AssignmentID       types.ID `json:"assignmentId" binding:"required"`
	Reason             string   `json:"reason" binding:"required"`
	AdvanceNoticeHours *int     `json:"advanceNoticeHours" binding:"required,gte=0,lte=72"`
}

type ReplacementAssigning struct {
	ReplacementClientID types.ID `json:"replacementClientId" binding:"required"`
}

var (
	assignmentIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})
	callOutIdWorker    = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateAssignmentFunc       = CreateAssignment
	QueryAssignmentsFunc       = QueryAssignments
	DetailAssignmentFunc       = DetailAssignment
	ConfirmAssignmentFunc      = ConfirmAssignment
	CallOutAssignmentFunc      = CallOutAssignment
	UpdateAssignmentStatusFunc = UpdateAssignmentStatus
	AssignReplacementFunc      = AssignReplacement
	QueryCallOutLogsFunc       = QueryCallOutLogs
	CountMonthStatsFunc        = CountMonthStats
)

// CreateAssignment inserts a pending assignment under the site's capacity
// limit. The site row is locked for the duration of the transaction so two
// concurrent creations cannot both pass the count for the last open slot.
func CreateAssignment(c *AssignmentCreation, sec *session.Session) (*WorkAssignment, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	created := WorkAssignment{}
	err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		site := worksite.WorkSite{}
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where(&worksite.WorkSite{ID: c.WorkSiteID}).First(&site).Error; err != nil {
			return err
		}
		if !site.IsActive {
			return bizerror.ErrInvalidState
		}

		count := 0
		if err := tx.Model(&WorkAssignment{}).
			Where("work_site_id = ? AND assignment_date = ? AND status IN (?)",
				c.WorkSiteID, c.AssignmentDate, ActiveStatuses).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= site.MaxWorkersPerShift {
			return &bizerror.ErrCapacityExceeded{SiteName: site.Name, Date: c.AssignmentDate, Limit: site.MaxWorkersPerShift}
		}

		now := types.CurrentTimestamp()
		created = WorkAssignment{
			ID:       idgen.NextID(assignmentIdWorker),
			ClientID: c.ClientID,

			WorkSiteID:     c.WorkSiteID,
			AssignmentDate: c.AssignmentDate,
			StartTime:      c.StartTime, EndTime: c.EndTime,

			Status:          StatusPending,
			AssignedBy:      sec.Identity.Name,
			AssignmentNotes: c.AssignmentNotes,

			CreateTime: now, UpdateTime: now,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func QueryAssignments(q AssignmentQuery, ctx context.Context) ([]AssignmentDetail, error) {
	records := []WorkAssignment{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	query := db.Order("assignment_date DESC, start_time ASC")
	if q.ClientID != 0 {
		query = query.Where("client_id = ?", q.ClientID)
	}
	if q.WorkSiteID != 0 {
		query = query.Where("work_site_id = ?", q.WorkSiteID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.DateBegin != "" {
		query = query.Where("assignment_date >= ?", q.DateBegin)
	}
	if q.DateEnd != "" {
		query = query.Where("assignment_date <= ?", q.DateEnd)
	}
	today := time.Now().Format("2006-01-02")
	switch q.Filter {
	case FilterToday:
		query = query.Where("assignment_date = ?", today)
	case FilterUpcoming:
		query = query.Where("assignment_date > ?", today).Order("assignment_date ASC", true)
	case FilterPast:
		query = query.Where("assignment_date < ?", today)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	details := make([]AssignmentDetail, 0, len(records))
	for _, r := range records {
		details = append(details, AssignmentDetail{WorkAssignment: r, NeedsReplacement: r.NeedsReplacement()})
	}
	return details, nil
}

func DetailAssignment(id types.ID, ctx context.Context) (*WorkAssignment, error) {
	record := WorkAssignment{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where(&WorkAssignment{ID: id}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ConfirmAssignment is owner-scoped: the lookup always carries the client id,
// so another client's assignment surfaces as not found, never as data.
func ConfirmAssignment(id, clientID types.ID, ctx context.Context) (*WorkAssignment, error) {
	updated := WorkAssignment{}
	err := persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		record := WorkAssignment{}
		if err := tx.Where("id = ? AND client_id = ?", id, clientID).First(&record).Error; err != nil {
			return err
		}
		if record.Status == StatusConfirmed {
			updated = record
			return nil
		}
		if record.Status != StatusPending {
			return bizerror.ErrInvalidState
		}
		changes := map[string]interface{}{
			"status":              StatusConfirmed,
			"confirmed_by_client": true,
			"confirmed_at":        types.CurrentTimestamp(),
			"update_time":         types.CurrentTimestamp(),
		}
		if err := tx.Model(&WorkAssignment{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where(&WorkAssignment{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// CallOutAssignment marks an owner-scoped assignment called out and writes
// its single log row in the same transaction. A repeated call-out hits the
// log's uniqueness constraint and surfaces as a conflict.
func CallOutAssignment(clientID types.ID, c *CallOutCreation, reportedBy string, ctx context.Context) (*WorkAssignment, error) {
	updated := WorkAssignment{}
	err := persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		record := WorkAssignment{}
		if err := tx.Where("id = ? AND client_id = ?", c.AssignmentID, clientID).First(&record).Error; err != nil {
			return err
		}
		if record.Status == StatusCalledOut || IsTerminal(record.Status) {
			return bizerror.ErrInvalidState
		}

		now := types.CurrentTimestamp()
		changes := map[string]interface{}{
			"status":         StatusCalledOut,
			"called_out_at":  now,
			"callout_reason": c.Reason,
			"update_time":    now,
		}
		if err := tx.Model(&WorkAssignment{}).Where("id = ?", c.AssignmentID).Updates(changes).Error; err != nil {
			return err
		}

		log := CallOutLog{
			ID:           idgen.NextID(callOutIdWorker),
			AssignmentID: c.AssignmentID,

			ReportedAt: now,
			ReportedBy: reportedBy,
			Reason:     c.Reason, AdvanceNoticeHours: *c.AdvanceNoticeHours,

			CreateTime: now,
		}
		if err := tx.Create(&log).Error; err != nil {
			return wrapDuplicateKey(err)
		}
		return tx.Where(&WorkAssignment{ID: c.AssignmentID}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateAssignmentStatus is the staff-side direct status write. It bypasses
// the capacity rule, matching the creation-time-only contract.
func UpdateAssignmentStatus(id types.ID, u *StatusUpdating, sec *session.Session) (*WorkAssignment, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	updated := WorkAssignment{}
	err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		record := WorkAssignment{}
		if err := tx.Where(&WorkAssignment{ID: id}).First(&record).Error; err != nil {
			return err
		}
		changes := map[string]interface{}{"status": u.Status, "update_time": types.CurrentTimestamp()}
		if u.HoursWorked > 0 {
			changes["hours_worked"] = u.HoursWorked
		}
		if u.PerformanceNotes != "" {
			changes["performance_notes"] = u.PerformanceNotes
		}
		if err := tx.Model(&WorkAssignment{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where(&WorkAssignment{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// AssignReplacement records the replacement client on a called-out assignment
// and stamps the log's replacement-found time.
func AssignReplacement(id types.ID, r *ReplacementAssigning, sec *session.Session) (*WorkAssignment, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	updated := WorkAssignment{}
	err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		record := WorkAssignment{}
		if err := tx.Where(&WorkAssignment{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if record.Status != StatusCalledOut {
			return bizerror.ErrInvalidState
		}

		now := types.CurrentTimestamp()
		changes := map[string]interface{}{
			"replacement_client_id": r.ReplacementClientID,
			"replacement_found":     true,
			"update_time":           now,
		}
		if err := tx.Model(&WorkAssignment{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		if err := tx.Model(&CallOutLog{}).Where("assignment_id = ?", id).
			Update("replacement_found_at", now).Error; err != nil {
			return err
		}
		return tx.Where(&WorkAssignment{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

type CallOutLogQuery struct {
	AssignmentID types.ID `json:"assignmentId" form:"assignmentId"`
	DateBegin    string   `json:"dateBegin" form:"dateBegin" binding:"omitempty,datetime=2006-01-02"`
	DateEnd      string   `json:"dateEnd" form:"dateEnd" binding:"omitempty,datetime=2006-01-02"`
}

func QueryCallOutLogs(q CallOutLogQuery, ctx context.Context) ([]CallOutLogDetail, error) {
	records := []CallOutLog{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	query := db.Order("reported_at DESC")
	if q.AssignmentID != 0 {
		query = query.Where("assignment_id = ?", q.AssignmentID)
	}
	if q.DateBegin != "" {
		query = query.Where("reported_at >= ?", q.DateBegin)
	}
	if q.DateEnd != "" {
		query = query.Where("reported_at < DATE_ADD(?, INTERVAL 1 DAY)", q.DateEnd)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	details := make([]CallOutLogDetail, 0, len(records))
	for _, r := range records {
		details = append(details, CallOutLogDetail{CallOutLog: r, IsLastMinute: r.IsLastMinute()})
	}
	return details, nil
}

type MonthStats struct {
	TotalAssignments     int `json:"totalAssignments"`
	CompletedAssignments int `json:"completedAssignments"`
}

// CountMonthStats summarizes one client's assignments in the current month.
func CountMonthStats(clientID types.ID, ctx context.Context) (*MonthStats, error) {
	now := time.Now()
	monthBegin := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02")
	monthEnd := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02")

	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	stats := MonthStats{}
	err := db.Model(&WorkAssignment{}).
		Where("client_id = ? AND assignment_date >= ? AND assignment_date < ?", clientID, monthBegin, monthEnd).
		Count(&stats.TotalAssignments).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&WorkAssignment{}).
		Where("client_id = ? AND assignment_date >= ? AND assignment_date < ? AND status = ?",
			clientID, monthBegin, monthEnd, StatusCompleted).
		Count(&stats.CompletedAssignments).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func wrapDuplicateKey(err error) error {
	if mysqlErr, ok := err.(*mysql.MySQLError); ok && mysqlErr.Number == 1062 {
		return bizerror.ErrConflict
	}
	return err
}
