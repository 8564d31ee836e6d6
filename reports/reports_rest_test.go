package reports_test

import (
	"context"
	"net/http"
	"testing"

	"hirehall/bizerror"
	"hirehall/reports"
	"hirehall/session"
	"hirehall/testinfra"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func buildReportsRouter() *gin.Engine {
	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	reports.RegisterReportsRestAPI(router, session.StaffAuthFilter())
	return router
}

func restoreReportStubs() {
	reports.AvailableWorkersReportFunc = reports.AvailableWorkersReport
	reports.AssignmentsReportFunc = reports.AssignmentsReport
}

func TestReportsRestAPI(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should answer csv with a download filename", func(t *testing.T) {
		defer restoreReportStubs()
		router := buildReportsRouter()

		reports.AvailableWorkersReportFunc = func(q reports.AvailableWorkersQuery, ctx context.Context) ([][]string, error) {
			return [][]string{{"Name", "Phone"}, {"Alma Reed", "4155550001"}}, nil
		}

		sec := testinfra.SignInStaff(1, "ana", session.RoleStaff)
		req, _ := http.NewRequest(http.MethodGet, reports.PathReports+"/available-workers", nil)
		testinfra.AttachStaffCookie(req, sec)
		status, body, resp := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/csv"))
		Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("available_workers_"))
		Expect(body).To(Equal("Name,Phone\nAlma Reed,4155550001\n"))
	})

	t.Run("should name the assignments file after the requested range", func(t *testing.T) {
		defer restoreReportStubs()
		router := buildReportsRouter()

		var gotQuery reports.AssignmentsReportQuery
		reports.AssignmentsReportFunc = func(q reports.AssignmentsReportQuery, ctx context.Context) ([][]string, error) {
			gotQuery = q
			return [][]string{{"Date"}}, nil
		}

		sec := testinfra.SignInStaff(1, "ana", session.RoleStaff)
		req, _ := http.NewRequest(http.MethodGet,
			reports.PathReports+"/assignments?startDate=2025-03-01&endDate=2025-03-07", nil)
		testinfra.AttachStaffCookie(req, sec)
		status, _, resp := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Disposition")).
			To(ContainSubstring("assignments_2025-03-01_to_2025-03-07.csv"))
		Expect(gotQuery.StartDate).To(Equal("2025-03-01"))
		Expect(gotQuery.EndDate).To(Equal("2025-03-07"))
	})

	t.Run("should reject a malformed date filter", func(t *testing.T) {
		defer restoreReportStubs()
		router := buildReportsRouter()

		sec := testinfra.SignInStaff(1, "ana", session.RoleStaff)
		req, _ := http.NewRequest(http.MethodGet,
			reports.PathReports+"/assignments?startDate=03/01/2025", nil)
		testinfra.AttachStaffCookie(req, sec)
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	t.Run("should require a staff session", func(t *testing.T) {
		defer restoreReportStubs()
		router := buildReportsRouter()

		req, _ := http.NewRequest(http.MethodGet, reports.PathReports+"/available-workers", nil)
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})
}
