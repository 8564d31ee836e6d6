package workerapi

import (
	"errors"
	"net/http"
	"time"

	"hirehall/account"
	"hirehall/bizerror"
	"hirehall/domain/assignment"
	"hirehall/domain/availability"
	"hirehall/domain/client"
	"hirehall/domain/servicerequest"
	"hirehall/domain/worksite"
	"hirehall/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathWorker = "/v1/worker"
)

// RegisterWorkerRestAPI mounts the worker self-service portal. Every handler
// takes the client id from the session, never from the request, so
// cross-client access is structurally impossible.
func RegisterWorkerRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorker, middleWares...)
	g.GET("/profile", handleWorkerProfile)
	g.GET("/dashboard", handleWorkerDashboard)
	g.GET("/assignments", handleWorkerAssignments)
	g.POST("/assignments/:id/confirm", handleWorkerConfirmAssignment)
	g.POST("/call-outs", handleWorkerCallOut)
	g.GET("/availability", handleWorkerAvailability)
	g.PUT("/availability", handleWorkerUpdateAvailability)
	g.GET("/service-requests", handleWorkerServiceRequests)
	g.POST("/service-requests", handleWorkerCreateServiceRequest)
	g.GET("/work-sites", handleWorkerWorkSites)
}

func mustWorkerSession(c *gin.Context) *session.WorkerSession {
	ws := session.FindWorkerContext(c)
	if ws == nil {
		panic(bizerror.ErrUnauthenticated)
	}
	return ws
}

func parsePathID(c *gin.Context, name string) types.ID {
	parsedId, err := types.ParseID(c.Param(name))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param(name) + "'")})
	}
	return parsedId
}

type ClientSummary struct {
	ID       types.ID `json:"id"`
	FullName string   `json:"fullName"`
	Phone    string   `json:"phone"`
	Email    string   `json:"email"`
	Status   string   `json:"status"`
}

type WorkerProfile struct {
	WorkerAccount *account.WorkerAccount `json:"workerAccount"`
	Client        ClientSummary          `json:"client"`
}

func handleWorkerProfile(c *gin.Context) {
	ws := mustWorkerSession(c)

	workerAccount, err := account.DetailWorkerAccountFunc(ws.WorkerAccountID, ws.Context)
	if err != nil {
		panic(err)
	}
	record, err := client.DetailClientFunc(ws.ClientID, ws.Context)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &WorkerProfile{
		WorkerAccount: workerAccount,
		Client: ClientSummary{ID: record.ID, FullName: record.FullName(),
			Phone: record.Phone, Email: record.Email, Status: record.Status},
	})
}

type WorkerDashboard struct {
	TodayAssignments    []assignment.AssignmentDetail         `json:"todayAssignments"`
	UpcomingAssignments []assignment.AssignmentDetail         `json:"upcomingAssignments"`
	RecentRequests      []servicerequest.ServiceRequestDetail `json:"recentRequests"`

	MonthStats             *assignment.MonthStats `json:"monthStats"`
	PendingServiceRequests int                    `json:"pendingServiceRequests"`
}

func handleWorkerDashboard(c *gin.Context) {
	ws := mustWorkerSession(c)

	todays, err := assignment.QueryAssignmentsFunc(
		assignment.AssignmentQuery{ClientID: ws.ClientID, Filter: assignment.FilterToday}, ws.Context)
	if err != nil {
		panic(err)
	}
	// upcoming runs soonest-first, bounded to the next seven days
	upcoming, err := assignment.QueryAssignmentsFunc(assignment.AssignmentQuery{
		ClientID: ws.ClientID,
		Filter:   assignment.FilterUpcoming,
		DateEnd:  time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
	}, ws.Context)
	if err != nil {
		panic(err)
	}
	recent, err := servicerequest.QueryServiceRequestsFunc(
		servicerequest.ServiceRequestQuery{SubmittedByID: ws.ClientID, Limit: 5}, ws.Context)
	if err != nil {
		panic(err)
	}
	stats, err := assignment.CountMonthStatsFunc(ws.ClientID, ws.Context)
	if err != nil {
		panic(err)
	}
	pending, err := servicerequest.CountPendingOfClientFunc(ws.ClientID, ws.Context)
	if err != nil {
		panic(err)
	}

	c.JSON(http.StatusOK, &WorkerDashboard{
		TodayAssignments:    todays,
		UpcomingAssignments: upcoming,
		RecentRequests:      recent,

		MonthStats:             stats,
		PendingServiceRequests: pending,
	})
}

type workerAssignmentQuery struct {
	Filter string `json:"filter" form:"filter" binding:"omitempty,oneof=today upcoming past"`
}

func handleWorkerAssignments(c *gin.Context) {
	ws := mustWorkerSession(c)

	query := workerAssignmentQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := assignment.QueryAssignmentsFunc(
		assignment.AssignmentQuery{ClientID: ws.ClientID, Filter: query.Filter}, ws.Context)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleWorkerConfirmAssignment(c *gin.Context) {
	ws := mustWorkerSession(c)

	record, err := assignment.ConfirmAssignmentFunc(parsePathID(c, "id"), ws.ClientID, ws.Context)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleWorkerCallOut(c *gin.Context) {
	ws := mustWorkerSession(c)

	creation := assignment.CallOutCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := assignment.CallOutAssignmentFunc(ws.ClientID, &creation, "Worker Portal", ws.Context)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleWorkerAvailability(c *gin.Context) {
	ws := mustWorkerSession(c)

	records, err := availability.QueryAvailabilitiesFunc(ws.ClientID, ws.Context)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleWorkerUpdateAvailability(c *gin.Context) {
	ws := mustWorkerSession(c)

	updates := []availability.AvailabilityUpdating{}
	if err := c.ShouldBindBodyWith(&updates, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := availability.UpsertAvailabilitiesFunc(ws.ClientID, updates, ws.Context)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleWorkerServiceRequests(c *gin.Context) {
	ws := mustWorkerSession(c)

	records, err := servicerequest.QueryServiceRequestsFunc(
		servicerequest.ServiceRequestQuery{SubmittedByID: ws.ClientID}, ws.Context)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleWorkerCreateServiceRequest(c *gin.Context) {
	ws := mustWorkerSession(c)

	creation := servicerequest.ServiceRequestCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := servicerequest.CreateServiceRequestFunc(ws.ClientID, &creation, ws.Context)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleWorkerWorkSites(c *gin.Context) {
	ws := mustWorkerSession(c)

	records, err := worksite.QueryWorkSitesFunc(worksite.WorkSiteQuery{ActiveOnly: true}, ws.Context)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}
