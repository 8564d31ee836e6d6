package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"hirehall/bizerror"
	"hirehall/idgen"
	"hirehall/persistence"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

const (
	MaxLoginAttempts = 5
	LockoutDuration  = 30 * time.Minute
)

// WorkerAccount is the phone+PIN identity a client uses on the worker portal,
// one-to-one with the client record.
type WorkerAccount struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ClientID types.ID `json:"clientId" gorm:"unique_index:uni_worker_account_client"`
	Phone    string   `json:"phone" gorm:"unique_index:uni_worker_account_phone"`

	PinSalt string `json:"-"`
	PinHash string `json:"-"`

	IsActive   bool `json:"isActive"`
	IsApproved bool `json:"isApproved"`

	LastLogin     types.Timestamp `json:"lastLogin" sql:"type:DATETIME(6)"`
	LoginAttempts int             `json:"-"`
	LockedUntil   types.Timestamp `json:"-" sql:"type:DATETIME(6)"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	CreatedBy  string          `json:"createdBy"`
	Notes      string          `json:"notes" sql:"type:TEXT"`
}

type WorkerAccountCreation struct {
	ClientID types.ID `json:"clientId" binding:"required"`
	Phone    string   `json:"phone" binding:"required,lte=20"`
	PIN      string   `json:"pin" binding:"required,numeric,gte=4,lte=6"`
	Approved bool     `json:"approved"`
	Notes    string   `json:"notes"`
}

type PinReset struct {
	PIN string `json:"pin" binding:"required,numeric,gte=4,lte=6"`
}

var (
	workerAccountIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateWorkerAccountFunc      = CreateWorkerAccount
	BulkCreateWorkerAccountsFunc = BulkCreateWorkerAccounts
	QueryWorkerAccountsFunc      = QueryWorkerAccounts
	ResetWorkerPinFunc           = ResetWorkerPin
	UpdateWorkerAccountGatesFunc = UpdateWorkerAccountGates
	AuthenticateWorkerFunc       = AuthenticateWorker
	DetailWorkerAccountFunc      = DetailWorkerAccount
)

func newPinSalt() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

func HashPin(salt, pin string) string {
	return HashSha256(salt + ":" + pin)
}

func (a *WorkerAccount) CheckPin(pin string) bool {
	return a.PinHash == HashPin(a.PinSalt, pin)
}

func (a *WorkerAccount) IsLocked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && now.Before(a.LockedUntil.Time())
}

func CreateWorkerAccount(c *WorkerAccountCreation, sec *session.Session) (*WorkerAccount, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	salt := newPinSalt()
	record := WorkerAccount{
		ID:         idgen.NextID(workerAccountIdWorker),
		ClientID:   c.ClientID,
		Phone:      c.Phone,
		PinSalt:    salt,
		PinHash:    HashPin(salt, c.PIN),
		IsActive:   true,
		IsApproved: c.Approved,
		CreateTime: types.CurrentTimestamp(),
		CreatedBy:  sec.Identity.Name,
		Notes:      c.Notes,
	}
	if err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Create(&record).Error; err != nil {
		return nil, wrapDuplicateKey(err)
	}
	return &record, nil
}

type BulkCreationResult struct {
	Created  []WorkerAccount `json:"created"`
	Failures []BulkFailure   `json:"failures"`
}

type BulkFailure struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// BulkCreateWorkerAccounts continues past individual failures so one duplicate
// phone does not abort the whole batch.
func BulkCreateWorkerAccounts(creations []WorkerAccountCreation, sec *session.Session) (*BulkCreationResult, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	result := BulkCreationResult{Created: []WorkerAccount{}, Failures: []BulkFailure{}}
	for i := range creations {
		record, err := CreateWorkerAccountFunc(&creations[i], sec)
		if err != nil {
			logrus.Warnf("bulk worker account creation failed for phone %s: %v", creations[i].Phone, err)
			result.Failures = append(result.Failures, BulkFailure{Phone: creations[i].Phone, Message: err.Error()})
			continue
		}
		result.Created = append(result.Created, *record)
	}
	return &result, nil
}

func QueryWorkerAccounts(sec *session.Session) ([]WorkerAccount, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	records := []WorkerAccount{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	if err := db.Order("create_time DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailWorkerAccount(id types.ID, ctx context.Context) (*WorkerAccount, error) {
	record := WorkerAccount{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where(&WorkerAccount{ID: id}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func ResetWorkerPin(id types.ID, r *PinReset, sec *session.Session) error {
	if sec == nil {
		return bizerror.ErrForbidden
	}
	salt := newPinSalt()
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	result := db.Model(&WorkerAccount{}).Where("id = ?", id).
		Updates(map[string]interface{}{"pin_salt": salt, "pin_hash": HashPin(salt, r.PIN),
			"login_attempts": 0, "locked_until": types.Timestamp{}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bizerror.ErrNotFound
	}
	return nil
}

type WorkerAccountGates struct {
	IsActive   *bool `json:"isActive"`
	IsApproved *bool `json:"isApproved"`
}

func UpdateWorkerAccountGates(id types.ID, g *WorkerAccountGates, sec *session.Session) error {
	if sec == nil {
		return bizerror.ErrForbidden
	}
	changes := map[string]interface{}{}
	if g.IsActive != nil {
		changes["is_active"] = *g.IsActive
	}
	if g.IsApproved != nil {
		changes["is_approved"] = *g.IsApproved
	}
	if len(changes) == 0 {
		return nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	result := db.Model(&WorkerAccount{}).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bizerror.ErrNotFound
	}
	return nil
}

// AuthenticateWorker checks phone+PIN against the lockout rules: five
// consecutive failures lock the account for thirty minutes, during which even
// a correct PIN is rejected. Success resets the counter and stamps last login.
func AuthenticateWorker(phone, pin string, ctx context.Context) (*WorkerAccount, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	record := WorkerAccount{}
	if err := db.Where(&WorkerAccount{Phone: phone}).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, bizerror.ErrInvalidCredential
		}
		return nil, err
	}

	if !record.IsActive {
		return nil, bizerror.ErrAccountInactive
	}
	if !record.IsApproved {
		return nil, bizerror.ErrAccountUnapproved
	}
	now := time.Now()
	if record.IsLocked(now) {
		return nil, bizerror.ErrAccountLocked
	}

	if !record.CheckPin(pin) {
		record.LoginAttempts++
		changes := map[string]interface{}{"login_attempts": record.LoginAttempts}
		if record.LoginAttempts >= MaxLoginAttempts {
			changes["locked_until"] = types.Timestamp(now.Add(LockoutDuration))
		}
		if err := db.Model(&WorkerAccount{}).Where("id = ?", record.ID).Updates(changes).Error; err != nil {
			return nil, err
		}
		return nil, bizerror.ErrInvalidCredential
	}

	if err := db.Model(&WorkerAccount{}).Where("id = ?", record.ID).
		Updates(map[string]interface{}{"login_attempts": 0, "locked_until": types.Timestamp{},
			"last_login": types.Timestamp(now)}).Error; err != nil {
		return nil, err
	}
	record.LoginAttempts = 0
	record.LockedUntil = types.Timestamp{}
	record.LastLogin = types.Timestamp(now)
	return &record, nil
}

func wrapDuplicateKey(err error) error {
	if mysqlErr, ok := err.(*mysql.MySQLError); ok && mysqlErr.Number == 1062 {
		return bizerror.ErrConflict
	}
	return err
}
