package client

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
	PathClients = "/v1/clients"
)

func RegisterClientsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathClients, middleWares...)
	g.POST("", handleCreateClient)
	g.GET("", handleQueryClients)
	g.GET("/:id", handleDetailClient)
	g.PUT("/:id", handleUpdateClient)
	g.DELETE("/:id", handleDeleteClient)
}

func parsePathID(c *gin.Context, name string) types.ID {
	parsedId, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return parsedId
}

func handleCreateClient(c *gin.Context) {
	creation := ClientCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateClientFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryClients(c *gin.Context) {
	query := ClientQuery{}
	err := c.MustBindWith(&query, binding.Query)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryClientsFunc(query, c.Request.Context())
	if err != nil {
		panic(err)
	}
	sec := session.FindSecurityContext(c)
	if sec == nil || !sec.IsAdmin() {
		for i := range records {
			records[i].MaskSSN()
		}
	}
	c.JSON(http.StatusOK, records)
}

// handleDetailClient returns the full projection only to admins; staff
// readers get the record with the SSN masked.
func handleDetailClient(c *gin.Context) {
	record, err := DetailClientFunc(parsePathID(c, "id"), c.Request.Context())
	if err != nil {
		panic(err)
	}
	sec := session.FindSecurityContext(c)
	if sec == nil || !sec.IsAdmin() {
		record.MaskSSN()
	}
	c.JSON(http.StatusOK, record.BuildDetail())
}

func handleUpdateClient(c *gin.Context) {
	updating := ClientUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateClientFunc(parsePathID(c, "id"), &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDeleteClient(c *gin.Context) {
	result, err := DeleteClientFunc(parsePathID(c, "id"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, result)
}
