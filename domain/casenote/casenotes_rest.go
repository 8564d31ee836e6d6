package casenote

import (
	"errors"
	"net/http"

	"hirehall/bizerror"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func RegisterCaseNotesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/clients/:id/case-notes", middleWares...)
	g.GET("", handleQueryCaseNotes)
	g.POST("", handleCreateCaseNote)

	d := r.Group("/v1/case-notes", middleWares...)
	d.PUT("/:id", handleUpdateCaseNote)
	d.DELETE("/:id", handleDeleteCaseNote)
}

func parsePathID(c *gin.Context, name string) types.ID {
	parsedId, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return parsedId
}

func handleCreateCaseNote(c *gin.Context) {
	creation := CaseNoteCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	creation.ClientID = parsePathID(c, "id")
	record, err := CreateCaseNoteFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryCaseNotes(c *gin.Context) {
	records, err := QueryCaseNotesFunc(parsePathID(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleUpdateCaseNote(c *gin.Context) {
	updating := CaseNoteUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateCaseNoteFunc(parsePathID(c, "id"), &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDeleteCaseNote(c *gin.Context) {
	if err := DeleteCaseNoteFunc(parsePathID(c, "id"), session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}
