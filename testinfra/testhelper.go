package testinfra

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"time"

	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ExecuteRequest runs one request through the router and drains the response.
func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, *http.Response) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	resp := w.Result()
	bodyBytes, _ := ioutil.ReadAll(resp.Body)
	return w.Code, string(bodyBytes), resp
}

// SignInStaff registers a staff session in the token cache and returns it;
// attach the token with AttachStaffCookie.
func SignInStaff(uid types.ID, name, role string) *session.Session {
	token := uuid.New().String()
	sec := &session.Session{Token: token,
		Identity: session.Identity{ID: uid, Name: name, Nickname: name}, Role: role, SigningTime: time.Now()}
	session.TokenCache.Set(token, sec, cache.DefaultExpiration)
	return sec
}

func AttachStaffCookie(req *http.Request, sec *session.Session) {
	req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: sec.Token})
}

// BuildWorkerSession fabricates a worker security context for handler tests.
func BuildWorkerSession(workerAccountID, clientID types.ID) *session.WorkerSession {
	now := time.Now()
	return &session.WorkerSession{Token: uuid.New().String(),
		WorkerAccountID: workerAccountID, ClientID: clientID,
		SigningTime: now, ExpireTime: now.Add(session.TokenExpiration)}
}
