package sessions

import (
	"net/http"
	"time"

	"hirehall/account"
	"hirehall/bizerror"
	"hirehall/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"golang.org/x/time/rate"
)

// workerLoginLimiter throttles PIN guessing across the whole process,
// on top of the per-account lockout.
var workerLoginLimiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 10)

type WorkerLoginRequest struct {
	Phone string `json:"phone" binding:"required"`
	PIN   string `json:"pin" binding:"required"`
}

type WorkerLoginResponse struct {
	Token         string                 `json:"token"`
	WorkerAccount *account.WorkerAccount `json:"workerAccount"`
}

func RegisterWorkerSessionsHandler(r *gin.Engine) {
	g := r.Group("/v1/worker/sessions")
	g.POST("", WorkerLoginHandler)
	g.DELETE("", WorkerLogoutHandler)
}

func WorkerLoginHandler(c *gin.Context) {
	if !workerLoginLimiter.Allow() {
		panic(bizerror.ErrTooManyRequests)
	}

	login := WorkerLoginRequest{}
	if err := c.ShouldBindBodyWith(&login, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	workerAccount, err := account.AuthenticateWorkerFunc(login.Phone, login.PIN, c.Request.Context())
	if err != nil {
		panic(err)
	}

	ws, err := session.CreateWorkerSessionFunc(workerAccount.ID, workerAccount.ClientID, c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &WorkerLoginResponse{Token: ws.Token, WorkerAccount: workerAccount})
}

func WorkerLogoutHandler(c *gin.Context) {
	token := session.ExtractWorkerToken(c)
	if token != "" {
		if err := session.DeleteWorkerSessionFunc(token, c.Request.Context()); err != nil {
			panic(err)
		}
	}
	c.AbortWithStatus(http.StatusNoContent)
}
