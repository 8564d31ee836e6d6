package worksite

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
	PathWorkSites = "/v1/work-sites"
)

func RegisterWorkSitesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkSites, middleWares...)
	g.POST("", handleCreateWorkSite)
	g.GET("", handleQueryWorkSites)
	g.GET("/:id", handleDetailWorkSite)
	g.PUT("/:id", handleUpdateWorkSite)
	g.POST("/:id/deactivate", handleDeactivateWorkSite)
}

func parsePathID(c *gin.Context, name string) types.ID {
	parsedId, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return parsedId
}

func handleCreateWorkSite(c *gin.Context) {
	creation := WorkSiteCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateWorkSiteFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryWorkSites(c *gin.Context) {
	query := WorkSiteQuery{}
	err := c.MustBindWith(&query, binding.Query)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryWorkSitesFunc(query, c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailWorkSite(c *gin.Context) {
	record, err := DetailWorkSiteFunc(parsePathID(c, "id"), c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleUpdateWorkSite(c *gin.Context) {
	updating := WorkSiteUpdating{}
	err := c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateWorkSiteFunc(parsePathID(c, "id"), &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDeactivateWorkSite(c *gin.Context) {
	if err := DeactivateWorkSiteFunc(parsePathID(c, "id"), session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}
