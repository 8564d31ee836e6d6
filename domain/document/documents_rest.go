package document

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"hirehall/bizerror"
	"hirehall/client/s3"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

func RegisterDocumentsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/clients/:id/documents", middleWares...)
	g.GET("", handleQueryDocuments)
	g.POST("", handleUploadDocument)

	d := r.Group("/v1/documents", middleWares...)
	d.GET("/:id", handleDetailDocument)
	d.DELETE("/:id", handleDeleteDocument)
	d.GET("/:id/download", handleDownloadDocument)
}

func parsePathID(c *gin.Context, name string) types.ID {
	parsedId, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return parsedId
}

func handleQueryDocuments(c *gin.Context) {
	records, err := QueryDocumentsFunc(parsePathID(c, "id"), c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

// handleUploadDocument stores the blob first, then its metadata row.
func handleUploadDocument(c *gin.Context) {
	clientID := parsePathID(c, "id")

	title := c.PostForm("title")
	if title == "" {
		panic(&bizerror.ErrBadParam{Cause: errors.New("title is required")})
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	file, err := fileHeader.Open()
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	defer file.Close()

	key := fmt.Sprintf("documents/%d/%s", clientID, filepath.Base(fileHeader.Filename))
	if err := s3.PutObjectFunc(key, file, c.Request.Context()); err != nil {
		panic(err)
	}

	creation := DocumentCreation{
		ClientID: clientID,
		Title:    title,
		DocType:  c.PostForm("docType"),
		FileKey:  key,
		Notes:    c.PostForm("notes"),
	}
	record, err := CreateDocumentFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDetailDocument(c *gin.Context) {
	record, err := DetailDocumentFunc(parsePathID(c, "id"), c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleDeleteDocument(c *gin.Context) {
	if err := DeleteDocumentFunc(parsePathID(c, "id"), session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleDownloadDocument(c *gin.Context) {
	url, err := ResolveDownloadURLFunc(parsePathID(c, "id"), c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.Redirect(http.StatusFound, url)
}
