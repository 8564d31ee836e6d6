package indices

import (
	"context"
	"fmt"

	"hirehall/client/es"
	"hirehall/domain/client"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	ClientIndexName = "clients"
)

// ClientDocument is the searchable projection of a client. Sensitive fields
// such as the SSN never enter the index.
type ClientDocument struct {
	ID types.ID `json:"id"`

	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`

	Status           string `json:"status"`
	Neighborhood     string `json:"neighborhood"`
	TrainingInterest string `json:"trainingInterest"`
	StaffName        string `json:"staffName"`

	CreateTime types.Timestamp `json:"createTime"`
}

func BuildClientDocument(c client.Client) ClientDocument {
	return ClientDocument{
		ID: c.ID,

		FullName:  c.FullName(),
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
		Email:     c.Email,

		Status:           c.Status,
		Neighborhood:     c.Neighborhood,
		TrainingInterest: c.TrainingInterest,
		StaffName:        c.StaffName,

		CreateTime: c.CreateTime,
	}
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

func IndexClients(clients []client.Client, ctx context.Context) error {
	docs := make([]ClientDocument, 0, len(clients))
	for _, c := range clients {
		docs = append(docs, BuildClientDocument(c))
	}

	if err := saveClientDocuments(docs, ctx); err != nil {
		return err
	}
	return nil
}

func saveClientDocuments(docs []ClientDocument, ctx context.Context) BatchActionError {
	errs := BatchActionError{}

	for _, doc := range docs {
		if err := es.IndexFunc(ClientIndexName, doc.ID, doc, ctx); err != nil {
			errs[doc.ID] = err
			logrus.Warnf("index client %d %s %s\n", doc.ID, doc.FullName, err)
		} else {
			logrus.Infof("index client %d %s successfully\n", doc.ID, doc.FullName)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Bootstrap hooks indexing into the client write path. Index failures are
// logged, never surfaced: the database row is the source of truth.
func Bootstrap() {
	client.IndexClientFunc = func(c client.Client) {
		if err := IndexClients([]client.Client{c}, context.Background()); err != nil {
			logrus.Warnf("failed to index client %d: %v\n", c.ID, err)
		}
	}
}
