package session_test

import (
	"context"
	"testing"
	"time"

	"hirehall/bizerror"
	"hirehall/persistence"
	"hirehall/session"
	"hirehall/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartMysqlTestDatabase("hirehall")
	*testDatabase = db
	Expect(db.DS.GormDB(nil).AutoMigrate(&session.SessionToken{}).Error).To(BeNil())

	persistence.ActiveDataSourceManager = db.DS
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func TestWorkerSessions(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should create and resolve a session", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		ws, err := session.CreateWorkerSession(11, 100, context.Background())
		Expect(err).To(BeNil())
		Expect(ws.Token).ToNot(BeEmpty())

		found, err := session.FindWorkerSession(ws.Token, context.Background())
		Expect(err).To(BeNil())
		Expect(found.WorkerAccountID).To(Equal(types.ID(11)))
		Expect(found.ClientID).To(Equal(types.ID(100)))
	})

	t.Run("should resolve from the database when the cache misses", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		ws, err := session.CreateWorkerSession(11, 100, context.Background())
		Expect(err).To(BeNil())

		// wipe the fast path, the row remains authoritative
		Expect(session.DeleteWorkerSession(ws.Token, context.Background())).To(BeNil())
		_, err = session.FindWorkerSession(ws.Token, context.Background())
		Expect(err).To(Equal(bizerror.ErrUnauthenticated))

		ws2, err := session.CreateWorkerSession(12, 200, context.Background())
		Expect(err).To(BeNil())

		record := session.SessionToken{}
		Expect(persistence.ActiveDataSourceManager.GormDB(nil).
			Where(&session.SessionToken{Token: ws2.Token}).First(&record).Error).To(BeNil())
		Expect(record.WorkerAccountID).To(Equal(types.ID(12)))
	})

	t.Run("should reject empty, unknown and expired tokens", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		_, err := session.FindWorkerSession("", context.Background())
		Expect(err).To(Equal(bizerror.ErrUnauthenticated))

		_, err = session.FindWorkerSession("no-such-token", context.Background())
		Expect(err).To(Equal(bizerror.ErrUnauthenticated))

		ws, err := session.CreateWorkerSession(11, 100, context.Background())
		Expect(err).To(BeNil())

		// age the row past its expiry; the stale cache entry must not keep it alive
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		Expect(db.Model(&session.SessionToken{}).Where("token = ?", ws.Token).
			Update("expire_time", types.Timestamp(time.Now().Add(-time.Minute))).Error).To(BeNil())
		ws.ExpireTime = time.Now().Add(-time.Minute)

		_, err = session.FindWorkerSession(ws.Token, context.Background())
		Expect(err).To(Equal(bizerror.ErrUnauthenticated))
	})
}
