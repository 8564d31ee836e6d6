package servicerequest

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
	PathServiceRequests = "/v1/service-requests"
)

func RegisterServiceRequestsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathServiceRequests, middleWares...)
	g.GET("", handleQueryServiceRequests)
	g.POST("/:id/acknowledge", handleAcknowledge)
	g.POST("/:id/assign", handleAssign)
	g.POST("/:id/resolve", handleResolve)
	g.POST("/:id/close", handleClose)
}

func parsePathID(c *gin.Context, name string) types.ID {
	parsedId, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return parsedId
}

func handleQueryServiceRequests(c *gin.Context) {
	query := ServiceRequestQuery{}
	err := c.MustBindWith(&query, binding.Query)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryServiceRequestsFunc(query, c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleAcknowledge(c *gin.Context) {
	record, err := AcknowledgeFunc(parsePathID(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

type assignRequest struct {
	AssignedTo string `json:"assignedTo" binding:"required,lte=100"`
}

func handleAssign(c *gin.Context) {
	req := assignRequest{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := AssignFunc(parsePathID(c, "id"), req.AssignedTo, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

type resolveRequest struct {
	ResolutionNotes string `json:"resolutionNotes"`
}

func handleResolve(c *gin.Context) {
	req := resolveRequest{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := ResolveFunc(parsePathID(c, "id"), req.ResolutionNotes, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleClose(c *gin.Context) {
	record, err := CloseFunc(parsePathID(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}
