package reports

import (
	"encoding/csv"
	"fmt"
	"time"

	"hirehall/bizerror"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathReports = "/v1/reports"
)

func RegisterReportsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathReports, middleWares...)
	g.GET("/available-workers", handleAvailableWorkersReport)
	g.GET("/assignments", handleAssignmentsReport)
	g.GET("/call-outs", handleCallOutsReport)
	g.GET("/todays-assignments", handleTodaysAssignmentsReport)
}

func writeCSV(c *gin.Context, filename string, rows [][]string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, filename))
	writer := csv.NewWriter(c.Writer)
	if err := writer.WriteAll(rows); err != nil {
		panic(err)
	}
	writer.Flush()
}

func handleAvailableWorkersReport(c *gin.Context) {
	query := AvailableWorkersQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	rows, err := AvailableWorkersReportFunc(query, c.Request.Context())
	if err != nil {
		panic(err)
	}
	filename := "available_workers_" + time.Now().Format("2006-01-02")
	if query.Day != "" {
		filename += "_" + query.Day
	}
	writeCSV(c, filename, rows)
}

func handleAssignmentsReport(c *gin.Context) {
	query := AssignmentsReportQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if query.StartDate == "" {
		query.StartDate = time.Now().Format("2006-01-02")
	}
	if query.EndDate == "" {
		query.EndDate = time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	}
	rows, err := AssignmentsReportFunc(query, c.Request.Context())
	if err != nil {
		panic(err)
	}
	writeCSV(c, fmt.Sprintf("assignments_%s_to_%s", query.StartDate, query.EndDate), rows)
}

func handleCallOutsReport(c *gin.Context) {
	query := CallOutsReportQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if query.StartDate == "" {
		query.StartDate = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	}
	if query.EndDate == "" {
		query.EndDate = time.Now().Format("2006-01-02")
	}
	rows, err := CallOutsReportFunc(query, c.Request.Context())
	if err != nil {
		panic(err)
	}
	writeCSV(c, fmt.Sprintf("callouts_%s_to_%s", query.StartDate, query.EndDate), rows)
}

func handleTodaysAssignmentsReport(c *gin.Context) {
	rows, err := TodaysAssignmentsReportFunc(c.Request.Context())
	if err != nil {
		panic(err)
	}
	writeCSV(c, "todays_assignments_"+time.Now().Format("2006-01-02"), rows)
}
