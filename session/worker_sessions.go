package session

import (
	"context"
	"strings"
	"time"

	"hirehall/bizerror"
	"hirehall/idgen"
	"hirehall/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
	"github.com/sony/sonyflake"
)

const KeyWorkerCtx = "WorkerCtx"

// SessionToken is the persisted worker portal session. The database row is
// authoritative so sessions survive restarts and multiple instances; the
// in-process cache is only a fast path.
type SessionToken struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Token           string   `json:"token" gorm:"unique_index:uni_session_token"`
	WorkerAccountID types.ID `json:"workerAccountId"`
	ClientID        types.ID `json:"clientId"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	ExpireTime types.Timestamp `json:"expireTime" sql:"type:DATETIME(6) NOT NULL"`
}

// WorkerSession is the security context of one worker portal request.
type WorkerSession struct {
	Token           string    `json:"token"`
	WorkerAccountID types.ID  `json:"workerAccountId"`
	ClientID        types.ID  `json:"clientId"`
	SigningTime     time.Time `json:"-"`
	ExpireTime      time.Time `json:"-"`

	Context context.Context `json:"-"`
}

var (
	sessionTokenIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})
	workerTokenCache     = cache.New(TokenExpiration, 1*time.Minute)

	CreateWorkerSessionFunc = CreateWorkerSession
	FindWorkerSessionFunc   = FindWorkerSession
	DeleteWorkerSessionFunc = DeleteWorkerSession
)

func CreateWorkerSession(workerAccountID, clientID types.ID, ctx context.Context) (*WorkerSession, error) {
	now := time.Now()
	record := SessionToken{
		ID:              idgen.NextID(sessionTokenIdWorker),
		Token:           uuid.New().String(),
		WorkerAccountID: workerAccountID,
		ClientID:        clientID,
		CreateTime:      types.Timestamp(now),
		ExpireTime:      types.Timestamp(now.Add(TokenExpiration)),
	}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}

	ws := &WorkerSession{Token: record.Token, WorkerAccountID: workerAccountID, ClientID: clientID,
		SigningTime: now, ExpireTime: now.Add(TokenExpiration), Context: ctx}
	workerTokenCache.Set(ws.Token, ws, TokenExpiration)
	return ws, nil
}

// FindWorkerSession resolves a token to a live session, expiry checked at use time.
func FindWorkerSession(token string, ctx context.Context) (*WorkerSession, error) {
	if token == "" {
		return nil, bizerror.ErrUnauthenticated
	}
	if value, found := workerTokenCache.Get(token); found {
		ws, ok := value.(*WorkerSession)
		if ok && time.Now().Before(ws.ExpireTime) {
			s := *ws
			s.Context = ctx
			return &s, nil
		}
		workerTokenCache.Delete(token)
	}

	record := SessionToken{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where(&SessionToken{Token: token}).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, bizerror.ErrUnauthenticated
		}
		return nil, err
	}
	if !time.Now().Before(record.ExpireTime.Time()) {
		return nil, bizerror.ErrUnauthenticated
	}

	ws := &WorkerSession{Token: record.Token, WorkerAccountID: record.WorkerAccountID, ClientID: record.ClientID,
		SigningTime: record.CreateTime.Time(), ExpireTime: record.ExpireTime.Time(), Context: ctx}
	workerTokenCache.Set(token, ws, time.Until(ws.ExpireTime))
	return ws, nil
}

func DeleteWorkerSession(token string, ctx context.Context) error {
	workerTokenCache.Delete(token)
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	return db.Delete(SessionToken{}, "token = ?", token).Error
}

// ExtractWorkerToken reads the "Authorization: Token <value>" request header.
func ExtractWorkerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(header, "Token "))
}

func WorkerAuthFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ws, err := FindWorkerSessionFunc(ExtractWorkerToken(ctx), ctx.Request.Context())
		if err != nil {
			panic(err)
		}
		ctx.Set(KeyWorkerCtx, ws)
		ctx.Next()
	}
}

func FindWorkerContext(ctx *gin.Context) *WorkerSession {
	value, found := ctx.Get(KeyWorkerCtx)
	if !found {
		return nil
	}
	ws, ok := value.(*WorkerSession)
	if !ok || ws.Token == "" {
		return nil
	}
	s := *ws
	s.Context = ctx.Request.Context()
	return &s
}
