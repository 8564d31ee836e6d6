package servicerequest

import (
	"context"
	"time"

	"hirehall/bizerror"
	"hirehall/idgen"
	"hirehall/persistence"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const (
	StatusOpen         = "open"
	StatusAcknowledged = "acknowledged"
	StatusInProgress   = "in_progress"
	StatusResolved     = "resolved"
	StatusClosed       = "closed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// overdueThresholds is the response SLA per priority, measured from creation.
var overdueThresholds = map[string]time.Duration{
	PriorityUrgent: 2 * time.Hour,
	PriorityHigh:   24 * time.Hour,
	PriorityMedium: 3 * 24 * time.Hour,
	PriorityLow:    7 * 24 * time.Hour,
}

// ServiceRequest is a worker-submitted operational issue report tied to a work site.
type ServiceRequest struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	SubmittedByID types.ID `json:"submittedById" gorm:"index:idx_service_request_client"`
	WorkSiteID    types.ID `json:"workSiteId" gorm:"index:idx_service_request_site"`

	IssueType      string `json:"issueType"`
	Title          string `json:"title"`
	Description    string `json:"description" sql:"type:TEXT"`
	LocationDetail string `json:"locationDetail"`

	Priority string `json:"priority"`
	Status   string `json:"status" gorm:"index:idx_service_request_status"`

	PhotoKey string `json:"photoKey"`

	AcknowledgedBy  string          `json:"acknowledgedBy"`
	AcknowledgedAt  types.Timestamp `json:"acknowledgedAt" sql:"type:DATETIME(6)"`
	AssignedTo      string          `json:"assignedTo"`
	ResolvedAt      types.Timestamp `json:"resolvedAt" sql:"type:DATETIME(6)"`
	ResolutionNotes string          `json:"resolutionNotes" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

type ServiceRequestDetail struct {
	ServiceRequest
	IsOverdue bool `json:"isOverdue"`
}

// IsOverdue reports whether the request has aged past its priority's SLA
// threshold. Resolved and closed requests are never overdue.
func (r *ServiceRequest) IsOverdue(now time.Time) bool {
	if r.Status == StatusResolved || r.Status == StatusClosed {
		return false
	}
	threshold, found := overdueThresholds[r.Priority]
	if !found {
		return false
	}
	return now.Sub(r.CreateTime.Time()) > threshold
}

type ServiceRequestCreation struct {
	WorkSiteID types.ID `json:"workSiteId" binding:"required"`

	IssueType      string `json:"issueType" binding:"required,oneof=bathroom supplies safety equipment cleaning other"`
	Title          string `json:"title" binding:"required,lte=200"`
	Description    string `json:"description" binding:"required"`
	LocationDetail string `json:"locationDetail" binding:"lte=200"`
	Priority       string `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	PhotoKey       string `json:"photoKey"`
}

type ServiceRequestQuery struct {
	SubmittedByID types.ID `json:"submittedById" form:"submittedById"`
	WorkSiteID    types.ID `json:"workSiteId" form:"workSiteId"`
	Status        string   `json:"status" form:"status" binding:"omitempty,oneof=open acknowledged in_progress resolved closed"`
	Limit         int      `json:"limit" form:"limit"`
}

var (
	serviceRequestIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateServiceRequestFunc = CreateServiceRequest
	QueryServiceRequestsFunc = QueryServiceRequests
	AcknowledgeFunc          = Acknowledge
	AssignFunc               = Assign
	ResolveFunc              = Resolve
	CloseFunc                = Close
	CountPendingOfClientFunc = CountPendingOfClient
)

// CreateServiceRequest records a request on behalf of the submitting client;
// the client id always comes from the caller's session, never the payload.
func CreateServiceRequest(submittedByID types.ID, c *ServiceRequestCreation, ctx context.Context) (*ServiceRequest, error) {
	now := types.CurrentTimestamp()
	record := ServiceRequest{
		ID:            idgen.NextID(serviceRequestIdWorker),
		SubmittedByID: submittedByID,
		WorkSiteID:    c.WorkSiteID,

		IssueType: c.IssueType, Title: c.Title, Description: c.Description,
		LocationDetail: c.LocationDetail,
		Priority:       c.Priority,
		Status:         StatusOpen,
		PhotoKey:       c.PhotoKey,

		CreateTime: now, UpdateTime: now,
	}
	if record.Priority == "" {
		record.Priority = PriorityMedium
	}
	if err := persistence.ActiveDataSourceManager.GormDB(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func QueryServiceRequests(q ServiceRequestQuery, ctx context.Context) ([]ServiceRequestDetail, error) {
	records := []ServiceRequest{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	query := db.Order("create_time DESC")
	if q.SubmittedByID != 0 {
		query = query.Where("submitted_by_id = ?", q.SubmittedByID)
	}
	if q.WorkSiteID != 0 {
		query = query.Where("work_site_id = ?", q.WorkSiteID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	details := make([]ServiceRequestDetail, 0, len(records))
	for _, r := range records {
		details = append(details, ServiceRequestDetail{ServiceRequest: r, IsOverdue: r.IsOverdue(now)})
	}
	return details, nil
}

func CountPendingOfClient(clientID types.ID, ctx context.Context) (int, error) {
	count := 0
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	err := db.Model(&ServiceRequest{}).Where("submitted_by_id = ? AND status IN (?)", clientID,
		[]string{StatusOpen, StatusAcknowledged, StatusInProgress}).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func Acknowledge(id types.ID, sec *session.Session) (*ServiceRequest, error) {
	return transition(id, sec, func(record *ServiceRequest, changes map[string]interface{}) error {
		if record.Status != StatusOpen {
			return bizerror.ErrInvalidState
		}
		changes["status"] = StatusAcknowledged
		changes["acknowledged_by"] = sec.Identity.Name
		changes["acknowledged_at"] = types.CurrentTimestamp()
		return nil
	})
}

func Assign(id types.ID, assignee string, sec *session.Session) (*ServiceRequest, error) {
	return transition(id, sec, func(record *ServiceRequest, changes map[string]interface{}) error {
		if record.Status == StatusResolved || record.Status == StatusClosed {
			return bizerror.ErrInvalidState
		}
		changes["status"] = StatusInProgress
		changes["assigned_to"] = assignee
		return nil
	})
}

func Resolve(id types.ID, notes string, sec *session.Session) (*ServiceRequest, error) {
	return transition(id, sec, func(record *ServiceRequest, changes map[string]interface{}) error {
		if record.Status == StatusResolved || record.Status == StatusClosed {
			return bizerror.ErrInvalidState
		}
		changes["status"] = StatusResolved
		changes["resolved_at"] = types.CurrentTimestamp()
		changes["resolution_notes"] = notes
		return nil
	})
}

func Close(id types.ID, sec *session.Session) (*ServiceRequest, error) {
	return transition(id, sec, func(record *ServiceRequest, changes map[string]interface{}) error {
		if record.Status == StatusClosed {
			return bizerror.ErrInvalidState
		}
		changes["status"] = StatusClosed
		return nil
	})
}

func transition(id types.ID, sec *session.Session, apply func(*ServiceRequest, map[string]interface{}) error) (*ServiceRequest, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	updated := ServiceRequest{}
	err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		record := ServiceRequest{}
		if err := tx.Where(&ServiceRequest{ID: id}).First(&record).Error; err != nil {
			return err
		}
		changes := map[string]interface{}{"update_time": types.CurrentTimestamp()}
		if err := apply(&record, changes); err != nil {
			return err
		}
		if err := tx.Model(&ServiceRequest{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where(&ServiceRequest{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
