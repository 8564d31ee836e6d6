package client_test

import (
	"context"
	"net/http"
	"testing"

	"hirehall/bizerror"
	"hirehall/domain/client"
	"hirehall/session"
	"hirehall/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func buildClientsRouter() *gin.Engine {
	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	client.RegisterClientsRestAPI(router, session.StaffAuthFilter())
	return router
}

func restoreClientStubs() {
	client.DetailClientFunc = client.DetailClient
	client.QueryClientsFunc = client.QueryClients
}

func TestClientRestSSNMasking(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should mask the ssn for staff readers and keep it for admins", func(t *testing.T) {
		defer restoreClientStubs()
		router := buildClientsRouter()

		client.DetailClientFunc = func(id types.ID, ctx context.Context) (*client.Client, error) {
			return &client.Client{ID: id, FirstName: "Alma", LastName: "Reed",
				DOB: "1990-02-10", SSN: "123-45-6789"}, nil
		}

		staff := testinfra.SignInStaff(1, "ana", session.RoleStaff)
		req, _ := http.NewRequest(http.MethodGet, client.PathClients+"/100", nil)
		testinfra.AttachStaffCookie(req, staff)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`"ssn":"XXX-XX-6789"`))
		Expect(body).ToNot(ContainSubstring("123-45-6789"))

		admin := testinfra.SignInStaff(2, "root", session.RoleAdmin)
		req, _ = http.NewRequest(http.MethodGet, client.PathClients+"/100", nil)
		testinfra.AttachStaffCookie(req, admin)
		status, body, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`"ssn":"123-45-6789"`))
		Expect(body).To(ContainSubstring(`"fullName":"Alma Reed"`))
	})

	t.Run("should mask the ssn in list responses for staff", func(t *testing.T) {
		defer restoreClientStubs()
		router := buildClientsRouter()

		client.QueryClientsFunc = func(q client.ClientQuery, ctx context.Context) ([]client.ClientDetail, error) {
			record := client.Client{ID: 100, FirstName: "Alma", LastName: "Reed", SSN: "123-45-6789"}
			return []client.ClientDetail{record.BuildDetail()}, nil
		}

		staff := testinfra.SignInStaff(1, "ana", session.RoleStaff)
		req, _ := http.NewRequest(http.MethodGet, client.PathClients, nil)
		testinfra.AttachStaffCookie(req, staff)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`"ssn":"XXX-XX-6789"`))
	})

	t.Run("should reject unauthenticated access", func(t *testing.T) {
		defer restoreClientStubs()
		router := buildClientsRouter()

		req, _ := http.NewRequest(http.MethodGet, client.PathClients+"/100", nil)
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})
}
