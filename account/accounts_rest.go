package account

import (
	"errors"
	"net/http"

	"hirehall/bizerror"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathUsers          = "/v1/users"
	PathWorkerAccounts = "/v1/worker-accounts"
)

func RegisterUsersRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathUsers, middleWares...)
	g.POST("", handleCreateUser)
	g.GET("", handleQueryUsers)
}

func RegisterWorkerAccountsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkerAccounts, middleWares...)
	g.POST("", handleCreateWorkerAccount)
	g.POST("/bulk", handleBulkCreateWorkerAccounts)
	g.GET("", handleQueryWorkerAccounts)
	g.GET("/:id", handleDetailWorkerAccount)
	g.PUT("/:id/pin", handleResetWorkerPin)
	g.PUT("/:id/gates", handleUpdateWorkerAccountGates)
}

func parsePathID(c *gin.Context, name string) types.ID {
	parsedId, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return parsedId
}

func handleCreateUser(c *gin.Context) {
	creation := UserCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateUserFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryUsers(c *gin.Context) {
	records, err := QueryUsersFunc(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleCreateWorkerAccount(c *gin.Context) {
	creation := WorkerAccountCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateWorkerAccountFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleBulkCreateWorkerAccounts(c *gin.Context) {
	creations := []WorkerAccountCreation{}
	err := c.ShouldBindBodyWith(&creations, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	result, err := BulkCreateWorkerAccountsFunc(creations, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, result)
}

func handleQueryWorkerAccounts(c *gin.Context) {
	records, err := QueryWorkerAccountsFunc(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailWorkerAccount(c *gin.Context) {
	record, err := DetailWorkerAccountFunc(parsePathID(c, "id"), c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleResetWorkerPin(c *gin.Context) {
	reset := PinReset{}
	err := c.ShouldBindBodyWith(&reset, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := ResetWorkerPinFunc(parsePathID(c, "id"), &reset, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleUpdateWorkerAccountGates(c *gin.Context) {
	gates := WorkerAccountGates{}
	err := c.ShouldBindBodyWith(&gates, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := UpdateWorkerAccountGatesFunc(parsePathID(c, "id"), &gates, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}
