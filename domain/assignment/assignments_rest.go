package assignment

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
	PathAssignments = "/v1/assignments"
	PathCallOutLogs = "/v1/call-out-logs"
)

func RegisterAssignmentsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathAssignments, middleWares...)
	g.POST("", handleCreateAssignment)
	g.GET("", handleQueryAssignments)
	g.GET("/:id", handleDetailAssignment)
	g.PUT("/:id/status", handleUpdateAssignmentStatus)
	g.PUT("/:id/replacement", handleAssignReplacement)

	l := r.Group(PathCallOutLogs, middleWares...)
	l.GET("", handleQueryCallOutLogs)
}

func parsePathID(c *gin.Context, name string) types.ID {
	parsedId, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return parsedId
}

func handleCreateAssignment(c *gin.Context) {
	creation := AssignmentCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateAssignmentFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryAssignments(c *gin.Context) {
	query := AssignmentQuery{}
	err := c.MustBindWith(&query, binding.Query)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryAssignmentsFunc(query, c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailAssignment(c *gin.Context) {
	record, err := DetailAssignmentFunc(parsePathID(c, "id"), c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, AssignmentDetail{WorkAssignment: *record, NeedsReplacement: record.NeedsReplacement()})
}

func handleUpdateAssignmentStatus(c *gin.Context) {
	updating := StatusUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateAssignmentStatusFunc(parsePathID(c, "id"), &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleAssignReplacement(c *gin.Context) {
	assigning := ReplacementAssigning{}
	err := c.ShouldBindBodyWith(&assigning, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := AssignReplacementFunc(parsePathID(c, "id"), &assigning, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, AssignmentDetail{WorkAssignment: *record, NeedsReplacement: record.NeedsReplacement()})
}

func handleQueryCallOutLogs(c *gin.Context) {
	query := CallOutLogQuery{}
	err := c.MustBindWith(&query, binding.Query)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryCallOutLogsFunc(query, c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}
