package account

import (
	"crypto/sha256"
	"encoding/hex"

	"hirehall/bizerror"
	"hirehall/idgen"
	"hirehall/persistence"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

// User is a staff account for the case-management side.
type User struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Name     string `json:"name" gorm:"unique_index:uni_user_name"`
	Nickname string `json:"nickname"`
	Secret   string `json:"-"`
	Role     string `json:"role"`
}

type UserInfo struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
	Role     string   `json:"role"`
}

type UserCreation struct {
	Name     string `json:"name" binding:"required,lte=100"`
	Nickname string `json:"nickname" binding:"lte=100"`
	Secret   string `json:"secret" binding:"required,gte=6"`
	Role     string `json:"role" binding:"required,oneof=admin staff"`
}

var (
	userIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateUserFunc = CreateUser
	QueryUsersFunc = QueryUsers
)

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

func CreateUser(c *UserCreation, sec *session.Session) (*UserInfo, error) {
	if sec == nil || !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	user := User{ID: idgen.NextID(userIdWorker), Name: c.Name, Nickname: c.Nickname,
		Secret: HashSha256(c.Secret), Role: c.Role}
	if err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Create(&user).Error; err != nil {
		return nil, wrapDuplicateKey(err)
	}
	return &UserInfo{ID: user.ID, Name: user.Name, Nickname: user.Nickname, Role: user.Role}, nil
}

func QueryUsers(sec *session.Session) ([]UserInfo, error) {
	if sec == nil || !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	var users []UserInfo
	if err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Model(&User{}).Scan(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
