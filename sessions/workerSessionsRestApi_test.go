package sessions_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"hirehall/account"
	"hirehall/bizerror"
	"hirehall/session"
	"hirehall/sessions"
	"hirehall/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func buildWorkerSessionsRouter() *gin.Engine {
	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	sessions.RegisterWorkerSessionsHandler(router)
	return router
}

func restoreWorkerSessionStubs() {
	account.AuthenticateWorkerFunc = account.AuthenticateWorker
	session.CreateWorkerSessionFunc = session.CreateWorkerSession
	session.DeleteWorkerSessionFunc = session.DeleteWorkerSession
}

func TestWorkerLoginHandler(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should issue a token on successful login", func(t *testing.T) {
		defer restoreWorkerSessionStubs()
		router := buildWorkerSessionsRouter()

		account.AuthenticateWorkerFunc = func(phone, pin string, ctx context.Context) (*account.WorkerAccount, error) {
			Expect(phone).To(Equal("4155550001"))
			Expect(pin).To(Equal("1234"))
			return &account.WorkerAccount{ID: 11, ClientID: 100, Phone: phone,
				IsActive: true, IsApproved: true}, nil
		}
		session.CreateWorkerSessionFunc = func(workerAccountID, clientID types.ID, ctx context.Context) (*session.WorkerSession, error) {
			Expect(workerAccountID).To(Equal(types.ID(11)))
			Expect(clientID).To(Equal(types.ID(100)))
			return &session.WorkerSession{Token: "issued-token", WorkerAccountID: workerAccountID, ClientID: clientID}, nil
		}

		payload := bytes.NewBufferString(`{"phone": "4155550001", "pin": "1234"}`)
		req, _ := http.NewRequest(http.MethodPost, "/v1/worker/sessions", payload)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`"token":"issued-token"`))
	})

	t.Run("should map credential and lockout failures", func(t *testing.T) {
		defer restoreWorkerSessionStubs()
		router := buildWorkerSessionsRouter()

		account.AuthenticateWorkerFunc = func(phone, pin string, ctx context.Context) (*account.WorkerAccount, error) {
			return nil, bizerror.ErrInvalidCredential
		}
		payload := bytes.NewBufferString(`{"phone": "4155550001", "pin": "0000"}`)
		req, _ := http.NewRequest(http.MethodPost, "/v1/worker/sessions", payload)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(MatchJSON(`{"code":"auth.invalid_credential", "message":"invalid phone or pin", "data":null}`))

		account.AuthenticateWorkerFunc = func(phone, pin string, ctx context.Context) (*account.WorkerAccount, error) {
			return nil, bizerror.ErrAccountLocked
		}
		payload = bytes.NewBufferString(`{"phone": "4155550001", "pin": "1234"}`)
		req, _ = http.NewRequest(http.MethodPost, "/v1/worker/sessions", payload)
		status, body, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(body).To(ContainSubstring("auth.account_locked"))
	})

	t.Run("should reject an incomplete payload", func(t *testing.T) {
		defer restoreWorkerSessionStubs()
		router := buildWorkerSessionsRouter()

		payload := bytes.NewBufferString(`{"phone": "4155550001"}`)
		req, _ := http.NewRequest(http.MethodPost, "/v1/worker/sessions", payload)
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
	})
}

func TestWorkerLogoutHandler(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should drop the presented token and always answer no content", func(t *testing.T) {
		defer restoreWorkerSessionStubs()
		router := buildWorkerSessionsRouter()

		deleted := []string{}
		session.DeleteWorkerSessionFunc = func(token string, ctx context.Context) error {
			deleted = append(deleted, token)
			return nil
		}

		req, _ := http.NewRequest(http.MethodDelete, "/v1/worker/sessions", nil)
		req.Header.Set("Authorization", "Token some-token")
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusNoContent))
		Expect(deleted).To(Equal([]string{"some-token"}))

		// without a token there is nothing to delete
		req, _ = http.NewRequest(http.MethodDelete, "/v1/worker/sessions", nil)
		status, _, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusNoContent))
		Expect(len(deleted)).To(Equal(1))
	})
}
