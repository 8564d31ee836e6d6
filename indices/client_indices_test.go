package indices_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"hirehall/bizerror"
	"hirehall/client/es"
	"hirehall/domain/client"
	"hirehall/indices"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func afterEach() {
	es.IndexFunc = es.Index
	client.LoadClientsFunc = client.LoadClients
	client.IndexClientFunc = func(c client.Client) {}
	indices.IndicesFullSyncFunc = indices.IndicesFullSync
}

func TestBuildClientDocument(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should project searchable fields and keep the ssn out", func(t *testing.T) {
		doc := indices.BuildClientDocument(client.Client{ID: 100,
			FirstName: "Alma", MiddleName: "J", LastName: "Reed", SSN: "123-45-6789",
			Phone: "4155550001", Status: client.StatusActive, Neighborhood: "mission",
			TrainingInterest: "pit_stop", StaffName: "ana"})
		Expect(doc.ID).To(Equal(types.ID(100)))
		Expect(doc.FullName).To(Equal("Alma J Reed"))
		Expect(doc.Status).To(Equal(client.StatusActive))

		raw, err := json.Marshal(doc)
		Expect(err).To(BeNil())
		Expect(string(raw)).ToNot(ContainSubstring("6789"))
		Expect(string(raw)).ToNot(ContainSubstring("ssn"))
	})
}

func TestIndexClients(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should index every client and collect per-document failures", func(t *testing.T) {
		defer afterEach()

		indexed := []types.ID{}
		es.IndexFunc = func(index string, id types.ID, doc interface{}, ctx context.Context) error {
			Expect(index).To(Equal(indices.ClientIndexName))
			indexed = append(indexed, id)
			if id == 2 {
				return errors.New("mapping error")
			}
			return nil
		}

		err := indices.IndexClients([]client.Client{{ID: 1}, {ID: 2}, {ID: 3}}, context.Background())
		Expect(err).ToNot(BeNil())
		batchErr, ok := err.(indices.BatchActionError)
		Expect(ok).To(BeTrue())
		Expect(len(batchErr)).To(Equal(1))
		Expect(batchErr[2]).ToNot(BeNil())
		Expect(indexed).To(Equal([]types.ID{1, 2, 3}))
	})
}

func TestBootstrap(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should hook indexing into the client write path", func(t *testing.T) {
		defer afterEach()

		indexed := []types.ID{}
		es.IndexFunc = func(index string, id types.ID, doc interface{}, ctx context.Context) error {
			indexed = append(indexed, id)
			return nil
		}

		indices.Bootstrap()
		client.IndexClientFunc(client.Client{ID: 100})
		Expect(indexed).To(Equal([]types.ID{100}))
	})
}

func TestScheduleNewSyncRun(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should be admin only", func(t *testing.T) {
		defer afterEach()

		_, err := indices.ScheduleNewSyncRun(nil)
		Expect(err).To(Equal(bizerror.ErrForbidden))

		staff := &session.Session{Token: "t", Identity: session.Identity{ID: 1, Name: "ana"},
			Role: session.RoleStaff}
		_, err = indices.ScheduleNewSyncRun(staff)
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should run one sync at a time", func(t *testing.T) {
		defer afterEach()

		blocker := make(chan struct{})
		started := make(chan struct{})
		indices.IndicesFullSyncFunc = func() error {
			close(started)
			<-blocker
			return nil
		}

		admin := &session.Session{Token: "t", Identity: session.Identity{ID: 1, Name: "root"},
			Role: session.RoleAdmin}
		ok, err := indices.ScheduleNewSyncRun(admin)
		Expect(err).To(BeNil())
		Expect(ok).To(BeTrue())
		<-started

		ok, err = indices.ScheduleNewSyncRun(admin)
		Expect(err).To(BeNil())
		Expect(ok).To(BeFalse())

		close(blocker)
	})
}

func TestIndicesFullSync(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should page through all clients until exhausted", func(t *testing.T) {
		defer afterEach()

		pages := map[int][]client.Client{
			1: {{ID: 1}, {ID: 2}},
			2: {{ID: 3}},
		}
		client.LoadClientsFunc = func(page, size int, ctx context.Context) ([]client.Client, error) {
			return pages[page], nil
		}
		indexed := []types.ID{}
		es.IndexFunc = func(index string, id types.ID, doc interface{}, ctx context.Context) error {
			indexed = append(indexed, id)
			return nil
		}

		Expect(indices.IndicesFullSync()).To(BeNil())
		Expect(indexed).To(Equal([]types.ID{1, 2, 3}))
	})
}
