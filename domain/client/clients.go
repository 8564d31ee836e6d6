package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hirehall/account"
	"hirehall/bizerror"
	"hirehall/client/s3"
	"hirehall/domain/assignment"
	"hirehall/domain/availability"
	"hirehall/domain/casenote"
	"hirehall/domain/document"
	"hirehall/domain/servicerequest"
	"hirehall/idgen"
	"hirehall/persistence"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusInactive  = "inactive"
)

// Client is a program participant.
type Client struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	LastName   string `json:"lastName"`
	DOB        string `json:"dob" sql:"type:DATE"`
	SSN        string `json:"ssn"`
	Phone      string `json:"phone" gorm:"index:idx_client_phone"`
	Email      string `json:"email"`
	Gender     string `json:"gender"`

	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`

	SFResident      bool   `json:"sfResident"`
	Neighborhood    string `json:"neighborhood"`
	DemographicInfo string `json:"demographicInfo"`
	Language        string `json:"language"`
	LanguageOther   string `json:"languageOther"`
	HighestDegree   string `json:"highestDegree"`

	EmploymentStatus string `json:"employmentStatus"`
	TrainingInterest string `json:"trainingInterest"`
	ReferralSource   string `json:"referralSource"`
	AdditionalNotes  string `json:"additionalNotes" sql:"type:TEXT"`

	ResumeKey string `json:"resumeKey"`

	Status    string `json:"status" gorm:"index:idx_client_status"`
	StaffName string `json:"staffName"`

	ProgramCompletedDate string  `json:"programCompletedDate" sql:"type:DATE"`
	JobPlaced            bool    `json:"jobPlaced"`
	JobPlacementDate     string  `json:"jobPlacementDate" sql:"type:DATE"`
	JobTitle             string  `json:"jobTitle"`
	JobCompany           string  `json:"jobCompany"`
	JobHourlyWage        float64 `json:"jobHourlyWage"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (c *Client) FullName() string {
	parts := []string{c.FirstName}
	if c.MiddleName != "" {
		parts = append(parts, c.MiddleName)
	}
	parts = append(parts, c.LastName)
	return strings.Join(parts, " ")
}

// Age computes completed years since date of birth; -1 when unparsable.
func (c *Client) Age(today time.Time) int {
	dob, err := time.Parse("2006-01-02", c.DOB)
	if err != nil {
		return -1
	}
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// MaskSSN blanks all but the last four digits for non-admin readers.
func (c *Client) MaskSSN() {
	if c.SSN == "" {
		return
	}
	digits := strings.NewReplacer("-", "", " ", "").Replace(c.SSN)
	if len(digits) >= 4 {
		c.SSN = "XXX-XX-" + digits[len(digits)-4:]
	} else {
		c.SSN = "XXX-XX-XXXX"
	}
}

type ClientDetail struct {
	Client
	FullName string `json:"fullName"`
	Age      int    `json:"age"`
}

func (c *Client) BuildDetail() ClientDetail {
	return ClientDetail{Client: *c, FullName: c.FullName(), Age: c.Age(time.Now())}
}

type ClientCreation struct {
	FirstName  string `json:"firstName" binding:"required,lte=50"`
	MiddleName string `json:"middleName" binding:"lte=50"`
	LastName   string `json:"lastName" binding:"required,lte=50"`
	DOB        string `json:"dob" binding:"required,datetime=2006-01-02"`
	SSN        string `json:"ssn" binding:"lte=11"`
	Phone      string `json:"phone" binding:"required,lte=20"`
	Email      string `json:"email" binding:"omitempty,email"`
	Gender     string `json:"gender" binding:"required,oneof=M F NB O P"`

	Address string `json:"address" binding:"lte=255"`
	City    string `json:"city" binding:"lte=100"`
	State   string `json:"state" binding:"lte=50"`
	ZipCode string `json:"zipCode" binding:"lte=20"`

	SFResident      bool   `json:"sfResident"`
	Neighborhood    string `json:"neighborhood" binding:"omitempty,oneof=mission soma bayview tenderloin western other"`
	DemographicInfo string `json:"demographicInfo" binding:"omitempty,oneof=black white latinx asian native mixed other prefer_not"`
	Language        string `json:"language" binding:"omitempty,oneof=en es zh vi tl other"`
	LanguageOther   string `json:"languageOther" binding:"lte=50"`
	HighestDegree   string `json:"highestDegree" binding:"omitempty,oneof=none elementary middle hs some_college aa ba ma phd"`

	EmploymentStatus string `json:"employmentStatus" binding:"omitempty,oneof=unemployed part_time full_time underemployed student other"`
	TrainingInterest string `json:"trainingInterest" binding:"omitempty,oneof=citybuild citybuild_pro security construction pit_stop general other"`
	ReferralSource   string `json:"referralSource" binding:"omitempty,oneof=friend social_media website job_center community_org walk_in other"`
	AdditionalNotes  string `json:"additionalNotes"`

	ResumeKey string `json:"resumeKey" binding:"lte=500"`
}

type ClientUpdating struct {
	FirstName  string `json:"firstName" binding:"omitempty,lte=50"`
	MiddleName string `json:"middleName" binding:"lte=50"`
	LastName   string `json:"lastName" binding:"omitempty,lte=50"`
	DOB        string `json:"dob" binding:"omitempty,datetime=2006-01-02"`
	SSN        string `json:"ssn" binding:"lte=11"`
	Phone      string `json:"phone" binding:"omitempty,lte=20"`
	Email      string `json:"email" binding:"omitempty,email"`

	Address string `json:"address" binding:"lte=255"`
	City    string `json:"city" binding:"lte=100"`
	State   string `json:"state" binding:"lte=50"`
	ZipCode string `json:"zipCode" binding:"lte=20"`

	EmploymentStatus string `json:"employmentStatus" binding:"omitempty,oneof=unemployed part_time full_time underemployed student other"`
	TrainingInterest string `json:"trainingInterest" binding:"omitempty,oneof=citybuild citybuild_pro security construction pit_stop general other"`
	AdditionalNotes  string `json:"additionalNotes"`

	ResumeKey string `json:"resumeKey" binding:"lte=500"`

	Status    string `json:"status" binding:"omitempty,oneof=pending active completed inactive"`
	StaffName string `json:"staffName" binding:"lte=100"`

	ProgramCompletedDate string   `json:"programCompletedDate" binding:"omitempty,datetime=2006-01-02"`
	JobPlaced            *bool    `json:"jobPlaced"`
	JobPlacementDate     string   `json:"jobPlacementDate" binding:"omitempty,datetime=2006-01-02"`
	JobTitle             string   `json:"jobTitle" binding:"lte=100"`
	JobCompany           string   `json:"jobCompany" binding:"lte=100"`
	JobHourlyWage        *float64 `json:"jobHourlyWage" binding:"omitempty,gte=0"`
}

type ClientQuery struct {
	Status  string `json:"status" form:"status" binding:"omitempty,oneof=pending active completed inactive"`
	Keyword string `json:"keyword" form:"keyword"`
}

var (
	clientIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateClientFunc = CreateClient
	QueryClientsFunc = QueryClients
	LoadClientsFunc  = LoadClients
	DetailClientFunc = DetailClient
	UpdateClientFunc = UpdateClient
	DeleteClientFunc = DeleteClient

	// IndexClientFunc feeds the search index after create and update.
	IndexClientFunc = func(c Client) {}
)

func CreateClient(c *ClientCreation, sec *session.Session) (*Client, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	now := types.CurrentTimestamp()
	record := Client{
		ID: idgen.NextID(clientIdWorker),

		FirstName: c.FirstName, MiddleName: c.MiddleName, LastName: c.LastName,
		DOB: c.DOB, SSN: c.SSN, Phone: c.Phone, Email: c.Email, Gender: c.Gender,

		Address: c.Address, City: c.City, State: c.State, ZipCode: c.ZipCode,

		SFResident: c.SFResident, Neighborhood: c.Neighborhood,
		DemographicInfo: c.DemographicInfo, Language: c.Language, LanguageOther: c.LanguageOther,
		HighestDegree: c.HighestDegree,

		EmploymentStatus: c.EmploymentStatus, TrainingInterest: c.TrainingInterest,
		ReferralSource: c.ReferralSource, AdditionalNotes: c.AdditionalNotes,

		ResumeKey: c.ResumeKey,

		Status:    StatusPending,
		StaffName: sec.Identity.Name,

		CreateTime: now, UpdateTime: now,
	}
	if record.Neighborhood == "" {
		record.Neighborhood = "other"
	}
	if record.DemographicInfo == "" {
		record.DemographicInfo = "other"
	}
	if record.Language == "" {
		record.Language = "en"
	}
	if record.HighestDegree == "" {
		record.HighestDegree = "none"
	}
	if record.EmploymentStatus == "" {
		record.EmploymentStatus = "unemployed"
	}
	if record.TrainingInterest == "" {
		record.TrainingInterest = "general"
	}
	if record.ReferralSource == "" {
		record.ReferralSource = "other"
	}
	if err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Create(&record).Error; err != nil {
		return nil, err
	}
	IndexClientFunc(record)
	return &record, nil
}

func QueryClients(q ClientQuery, ctx context.Context) ([]ClientDetail, error) {
	records := []Client{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	query := db.Order("create_time DESC")
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Keyword != "" {
		like := "%" + q.Keyword + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR phone LIKE ?", like, like, like)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	details := make([]ClientDetail, 0, len(records))
	for _, r := range records {
		details = append(details, r.BuildDetail())
	}
	return details, nil
}

// LoadClients pages through all clients in id order, for index rebuilds.
func LoadClients(page, size int, ctx context.Context) ([]Client, error) {
	records := []Client{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Order("id ASC").Offset((page - 1) * size).Limit(size).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailClient(id types.ID, ctx context.Context) (*Client, error) {
	record := Client{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where(&Client{ID: id}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateClient(id types.ID, u *ClientUpdating, sec *session.Session) (*Client, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	updated := Client{}
	err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		record := Client{}
		if err := tx.Where(&Client{ID: id}).First(&record).Error; err != nil {
			return err
		}
		changes := map[string]interface{}{"update_time": types.CurrentTimestamp()}
		stringChanges := map[string]string{
			"first_name": u.FirstName, "middle_name": u.MiddleName, "last_name": u.LastName,
			"dob": u.DOB, "ssn": u.SSN, "phone": u.Phone, "email": u.Email,
			"address": u.Address, "city": u.City, "state": u.State, "zip_code": u.ZipCode,
			"employment_status": u.EmploymentStatus, "training_interest": u.TrainingInterest,
			"additional_notes": u.AdditionalNotes, "resume_key": u.ResumeKey,
			"status": u.Status, "staff_name": u.StaffName,
			"program_completed_date": u.ProgramCompletedDate, "job_placement_date": u.JobPlacementDate,
			"job_title": u.JobTitle, "job_company": u.JobCompany,
		}
		for column, value := range stringChanges {
			if value != "" {
				changes[column] = value
			}
		}
		if u.JobPlaced != nil {
			changes["job_placed"] = *u.JobPlaced
		}
		if u.JobHourlyWage != nil {
			changes["job_hourly_wage"] = *u.JobHourlyWage
		}
		if err := tx.Model(&Client{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where(&Client{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	IndexClientFunc(updated)
	return &updated, nil
}

// DeletionResult reports what a cascade delete removed, with per-item blob
// warnings instead of a failed request.
type DeletionResult struct {
	ClientID types.ID `json:"clientId"`

	DeletedCaseNotes       int `json:"deletedCaseNotes"`
	DeletedDocuments       int `json:"deletedDocuments"`
	DeletedAvailabilities  int `json:"deletedAvailabilities"`
	DeletedAssignments     int `json:"deletedAssignments"`
	DeletedCallOutLogs     int `json:"deletedCallOutLogs"`
	DeletedServiceRequests int `json:"deletedServiceRequests"`
	DeletedWorkerAccounts  int `json:"deletedWorkerAccounts"`

	Warnings []string `json:"warnings"`
}

// DeleteClient removes a client and every dependent row in one transaction.
// Blob deletes happen after commit and are fail-soft per item: the database
// rows are authoritative, an unreachable blob only adds a warning.
func DeleteClient(id types.ID, sec *session.Session) (*DeletionResult, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	result := DeletionResult{ClientID: id, Warnings: []string{}}
	blobKeys := []string{}
	err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Transaction(func(tx *gorm.DB) error {
		record := Client{}
		if err := tx.Where(&Client{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if record.ResumeKey != "" {
			blobKeys = append(blobKeys, record.ResumeKey)
		}

		documents := []document.Document{}
		if err := tx.Where("client_id = ?", id).Find(&documents).Error; err != nil {
			return err
		}
		for _, d := range documents {
			blobKeys = append(blobKeys, d.FileKey)
		}

		assignmentIDs := []types.ID{}
		assignments := []assignment.WorkAssignment{}
		if err := tx.Where("client_id = ?", id).Find(&assignments).Error; err != nil {
			return err
		}
		for _, a := range assignments {
			assignmentIDs = append(assignmentIDs, a.ID)
		}

		r := tx.Delete(casenote.CaseNote{}, "client_id = ?", id)
		if r.Error != nil {
			return r.Error
		}
		result.DeletedCaseNotes = int(r.RowsAffected)

		r = tx.Delete(document.Document{}, "client_id = ?", id)
		if r.Error != nil {
			return r.Error
		}
		result.DeletedDocuments = int(r.RowsAffected)

		r = tx.Delete(availability.ClientAvailability{}, "client_id = ?", id)
		if r.Error != nil {
			return r.Error
		}
		result.DeletedAvailabilities = int(r.RowsAffected)

		if len(assignmentIDs) > 0 {
			r = tx.Delete(assignment.CallOutLog{}, "assignment_id IN (?)", assignmentIDs)
			if r.Error != nil {
				return r.Error
			}
			result.DeletedCallOutLogs = int(r.RowsAffected)
		}

		r = tx.Delete(assignment.WorkAssignment{}, "client_id = ?", id)
		if r.Error != nil {
			return r.Error
		}
		result.DeletedAssignments = int(r.RowsAffected)

		r = tx.Delete(servicerequest.ServiceRequest{}, "submitted_by_id = ?", id)
		if r.Error != nil {
			return r.Error
		}
		result.DeletedServiceRequests = int(r.RowsAffected)

		r = tx.Delete(account.WorkerAccount{}, "client_id = ?", id)
		if r.Error != nil {
			return r.Error
		}
		result.DeletedWorkerAccounts = int(r.RowsAffected)

		if err := tx.Delete(session.SessionToken{}, "client_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(Client{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}

	for _, key := range blobKeys {
		if err := s3.DeleteObjectFunc(key, sec.Context); err != nil {
			logrus.Warnf("failed to delete blob %s of client %d: %v", key, id, err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("blob %s not deleted: %v", key, err))
		}
	}
	return &result, nil
}
