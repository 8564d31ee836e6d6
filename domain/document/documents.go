package document

import (
	"context"
	"strconv"
	"strings"

	"hirehall/bizerror"
	"hirehall/client/s3"
	"hirehall/idgen"
	"hirehall/persistence"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

// DownloadURLExpirySeconds bounds how long a signed download link stays valid.
const DownloadURLExpirySeconds = 15 * 60

// Document is blob-backed file metadata attached to a client. The database
// row is authoritative; blob probes are best effort.
type Document struct {
	ID       types.ID `json:"id" gorm:"primary_key"`
	ClientID types.ID `json:"clientId" gorm:"index:idx_document_client"`

	Title   string `json:"title"`
	DocType string `json:"docType"`
	FileKey string `json:"fileKey"`

	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
	UploadedBy  string `json:"uploadedBy"`
	Notes       string `json:"notes" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

type DocumentCreation struct {
	ClientID types.ID `json:"clientId" binding:"required"`

	Title   string `json:"title" binding:"required,lte=255"`
	DocType string `json:"docType" binding:"omitempty,oneof=resume intake consent id certificate reference other"`
	FileKey string `json:"fileKey" binding:"required,lte=500"`
	Notes   string `json:"notes"`
}

var (
	documentIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateDocumentFunc     = CreateDocument
	QueryDocumentsFunc     = QueryDocuments
	DetailDocumentFunc     = DetailDocument
	DeleteDocumentFunc     = DeleteDocument
	ResolveDownloadURLFunc = ResolveDownloadURL
)

func CreateDocument(c *DocumentCreation, sec *session.Session) (*Document, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	now := types.CurrentTimestamp()
	record := Document{
		ID:       idgen.NextID(documentIdWorker),
		ClientID: c.ClientID,

		Title: c.Title, DocType: c.DocType, FileKey: c.FileKey,
		UploadedBy: sec.Identity.Name, Notes: c.Notes,

		CreateTime: now, UpdateTime: now,
	}
	if record.DocType == "" {
		record.DocType = "other"
	}
	fillBlobMetadata(&record, sec.Context)
	if err := persistence.ActiveDataSourceManager.GormDB(sec.Context).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// fillBlobMetadata probes the blob for size and content type. Probe failures
// are logged and ignored so that a storage hiccup never blocks the save.
func fillBlobMetadata(record *Document, ctx context.Context) {
	header, err := s3.GetObjectMetaFunc(record.FileKey, ctx)
	if err != nil {
		logrus.Warnf("failed to probe blob metadata for %s: %v", record.FileKey, err)
		return
	}
	if size, err := strconv.ParseInt(header.Get("Content-Length"), 10, 64); err == nil {
		record.FileSize = size
	}
	record.ContentType = header.Get("Content-Type")
}

func QueryDocuments(clientID types.ID, ctx context.Context) ([]Document, error) {
	records := []Document{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where("client_id = ?", clientID).Order("create_time DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailDocument(id types.ID, ctx context.Context) (*Document, error) {
	record := Document{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where(&Document{ID: id}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteDocument removes the metadata row, then tries to remove the blob.
// A blob delete failure is logged but never surfaced to the caller.
func DeleteDocument(id types.ID, sec *session.Session) error {
	if sec == nil {
		return bizerror.ErrForbidden
	}
	record, err := DetailDocumentFunc(id, sec.Context)
	if err != nil {
		return err
	}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	if err := db.Delete(Document{}, "id = ?", id).Error; err != nil {
		return err
	}
	if err := s3.DeleteObjectFunc(record.FileKey, sec.Context); err != nil {
		logrus.Warnf("failed to delete blob %s of document %d: %v", record.FileKey, id, err)
	}
	return nil
}

// candidatePaths lists the storage keys a document may live under, in probe
// order. Earlier deployments stored keys with the container name embedded and
// swapped between documents/ and resumes/ prefixes, so downloads try the
// stored key first and each known legacy variant after it.
func candidatePaths(blobName string) []string {
	base := strings.TrimLeft(blobName, "/")
	base = strings.TrimPrefix(base, "client-docs/")

	paths := []string{base, "client-docs/" + base}
	if strings.HasPrefix(base, "documents/") {
		swapped := strings.Replace(base, "documents/", "resumes/", 1)
		paths = append(paths, swapped, "client-docs/"+swapped, strings.TrimPrefix(base, "documents/"))
	} else if strings.HasPrefix(base, "resumes/") {
		swapped := strings.Replace(base, "resumes/", "documents/", 1)
		paths = append(paths, swapped, "client-docs/"+swapped, strings.TrimPrefix(base, "resumes/"))
	} else {
		paths = append(paths, "resumes/"+base, "client-docs/resumes/"+base,
			"documents/"+base, "client-docs/documents/"+base)
	}

	seen := map[string]bool{}
	unique := make([]string, 0, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}
	return unique
}

// ResolveDownloadURL probes the candidate paths of a document's stored key
// and signs a short-lived url for the first blob that exists.
func ResolveDownloadURL(id types.ID, ctx context.Context) (string, error) {
	record, err := DetailDocumentFunc(id, ctx)
	if err != nil {
		return "", err
	}

	for _, path := range candidatePaths(record.FileKey) {
		found, err := s3.IsObjectExistFunc(path, ctx)
		if err != nil {
			logrus.Debugf("failed to probe blob existence at %s: %v", path, err)
			continue
		}
		if found {
			return s3.SignURLFunc(path, DownloadURLExpirySeconds, ctx)
		}
	}
	logrus.Warnf("blob of document %d not found under any candidate path of %s", id, record.FileKey)
	return "", bizerror.ErrNotFound
}
