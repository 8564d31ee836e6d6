package search

import (
	"net/http"

	"hirehall/bizerror"
	"hirehall/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathClientSearch = "/v1/client-search"
)

func RegisterClientSearchRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathClientSearch, middleWares...)
	g.GET("", handleSearchClients)
}

func handleSearchClients(c *gin.Context) {
	query := ClientSearchQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	sec := session.FindSecurityContext(c)
	if sec == nil {
		panic(bizerror.ErrUnauthenticated)
	}
	docs, err := SearchClientsFunc(query, sec)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, docs)
}
