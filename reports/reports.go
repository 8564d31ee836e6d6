package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hirehall/domain/assignment"
	"hirehall/domain/availability"
	"hirehall/domain/client"
	"hirehall/domain/worksite"
	"hirehall/persistence"

	"github.com/fundwit/go-commons/types"
)

var (
	AvailableWorkersReportFunc  = AvailableWorkersReport
	AssignmentsReportFunc       = AssignmentsReport
	CallOutsReportFunc          = CallOutsReport
	TodaysAssignmentsReportFunc = TodaysAssignmentsReport
)

type AvailableWorkersQuery struct {
	Day  string `json:"day" form:"day" binding:"omitempty,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Date string `json:"date" form:"date" binding:"omitempty,datetime=2006-01-02"`
}

type AssignmentsReportQuery struct {
	StartDate  string   `json:"startDate" form:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate    string   `json:"endDate" form:"endDate" binding:"omitempty,datetime=2006-01-02"`
	WorkSiteID types.ID `json:"workSiteId" form:"workSiteId"`
	Status     string   `json:"status" form:"status" binding:"omitempty,oneof=pending confirmed in_progress completed no_show called_out cancelled"`
}

type CallOutsReportQuery struct {
	StartDate string `json:"startDate" form:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"endDate" form:"endDate" binding:"omitempty,datetime=2006-01-02"`
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func loadClientNames(ids []types.ID, ctx context.Context) (map[types.ID]client.Client, error) {
	index := map[types.ID]client.Client{}
	if len(ids) == 0 {
		return index, nil
	}
	records := []client.Client{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where("id IN (?)", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	for _, r := range records {
		index[r.ID] = r
	}
	return index, nil
}

func loadSites(ctx context.Context) (map[types.ID]worksite.WorkSite, error) {
	records := []worksite.WorkSite{}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Find(&records).Error; err != nil {
		return nil, err
	}
	index := map[types.ID]worksite.WorkSite{}
	for _, r := range records {
		index[r.ID] = r
	}
	return index, nil
}

// AvailableWorkersReport lists dispatchable clients: active or completed,
// not yet placed, optionally available on a weekday and not already booked
// for a given date.
func AvailableWorkersReport(q AvailableWorkersQuery, ctx context.Context) ([][]string, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)

	clients := []client.Client{}
	query := db.Where("status IN (?) AND job_placed = ?",
		[]string{client.StatusActive, client.StatusCompleted}, false)
	if q.Day != "" {
		availableIDs := []types.ID{}
		rows := []availability.ClientAvailability{}
		if err := db.Where("day_of_week = ? AND available = ?", q.Day, true).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			availableIDs = append(availableIDs, r.ClientID)
		}
		if len(availableIDs) == 0 {
			availableIDs = append(availableIDs, 0)
		}
		query = query.Where("id IN (?)", availableIDs)
	}
	if q.Date != "" {
		booked := []assignment.WorkAssignment{}
		if err := db.Where("assignment_date = ? AND status IN (?)", q.Date, assignment.ActiveStatuses).
			Find(&booked).Error; err != nil {
			return nil, err
		}
		bookedIDs := []types.ID{}
		for _, b := range booked {
			bookedIDs = append(bookedIDs, b.ClientID)
		}
		if len(bookedIDs) > 0 {
			query = query.Where("id NOT IN (?)", bookedIDs)
		}
	}
	if err := query.Order("last_name ASC, first_name ASC").Find(&clients).Error; err != nil {
		return nil, err
	}

	clientIDs := make([]types.ID, 0, len(clients))
	for _, c := range clients {
		clientIDs = append(clientIDs, c.ID)
	}

	availableDays := map[types.ID][]string{}
	if len(clientIDs) > 0 {
		rows := []availability.ClientAvailability{}
		if err := db.Where("client_id IN (?) AND available = ?", clientIDs, true).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			availableDays[r.ClientID] = append(availableDays[r.ClientID], r.DayOfWeek)
		}
	}

	type recentCounts struct{ total, noShows, callOuts int }
	recent := map[types.ID]*recentCounts{}
	if len(clientIDs) > 0 {
		since := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
		rows := []assignment.WorkAssignment{}
		if err := db.Where("client_id IN (?) AND assignment_date >= ?", clientIDs, since).
			Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			counts := recent[r.ClientID]
			if counts == nil {
				counts = &recentCounts{}
				recent[r.ClientID] = counts
			}
			counts.total++
			if r.Status == assignment.StatusNoShow {
				counts.noShows++
			}
			if r.Status == assignment.StatusCalledOut {
				counts.callOuts++
			}
		}
	}

	rows := [][]string{{"Name", "Phone", "Email", "Language", "Available Days",
		"Recent Assignments", "No Shows (Last 30 days)", "Call Outs (Last 30 days)", "Status", "Notes"}}
	for _, c := range clients {
		days := strings.Join(availableDays[c.ID], ", ")
		if days == "" {
			days = "Not set"
		}
		counts := recent[c.ID]
		if counts == nil {
			counts = &recentCounts{}
		}
		rows = append(rows, []string{
			c.FullName(), c.Phone, c.Email, c.Language, days,
			fmt.Sprintf("%d", counts.total), fmt.Sprintf("%d", counts.noShows), fmt.Sprintf("%d", counts.callOuts),
			c.Status, c.AdditionalNotes,
		})
	}
	return rows, nil
}

func AssignmentsReport(q AssignmentsReportQuery, ctx context.Context) ([][]string, error) {
	if q.StartDate == "" {
		q.StartDate = time.Now().Format("2006-01-02")
	}
	if q.EndDate == "" {
		q.EndDate = time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	}
	records, err := assignment.QueryAssignmentsFunc(assignment.AssignmentQuery{
		WorkSiteID: q.WorkSiteID, Status: q.Status,
		DateBegin: q.StartDate, DateEnd: q.EndDate,
	}, ctx)
	if err != nil {
		return nil, err
	}

	clientIDs := []types.ID{}
	for _, r := range records {
		clientIDs = append(clientIDs, r.ClientID)
		if r.ReplacementClientID != 0 {
			clientIDs = append(clientIDs, r.ReplacementClientID)
		}
	}
	clients, err := loadClientNames(clientIDs, ctx)
	if err != nil {
		return nil, err
	}
	sites, err := loadSites(ctx)
	if err != nil {
		return nil, err
	}

	rows := [][]string{{"Date", "Worker Name", "Phone", "Work Site", "Start Time", "End Time",
		"Status", "Confirmed", "Hours Worked", "Assigned By", "Call Out Reason", "Replacement", "Notes"}}
	for _, r := range records {
		worker := clients[r.ClientID]
		site := sites[r.WorkSiteID]
		hours := ""
		if r.HoursWorked > 0 {
			hours = fmt.Sprintf("%.2f", r.HoursWorked)
		}
		replacement := ""
		if r.ReplacementClientID != 0 {
			rc := clients[r.ReplacementClientID]
			replacement = rc.FullName()
		}
		rows = append(rows, []string{
			r.AssignmentDate, worker.FullName(), worker.Phone, site.Name,
			r.StartTime, r.EndTime, r.Status, yesNo(r.ConfirmedByClient),
			hours, r.AssignedBy, r.CalloutReason, replacement, r.AssignmentNotes,
		})
	}
	return rows, nil
}

func CallOutsReport(q CallOutsReportQuery, ctx context.Context) ([][]string, error) {
	if q.StartDate == "" {
		q.StartDate = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	}
	if q.EndDate == "" {
		q.EndDate = time.Now().Format("2006-01-02")
	}

	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	assignments := []assignment.WorkAssignment{}
	if err := db.Where("assignment_date >= ? AND assignment_date <= ?", q.StartDate, q.EndDate).
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	assignmentIndex := map[types.ID]assignment.WorkAssignment{}
	assignmentIDs := []types.ID{}
	clientIDs := []types.ID{}
	for _, a := range assignments {
		assignmentIndex[a.ID] = a
		assignmentIDs = append(assignmentIDs, a.ID)
		clientIDs = append(clientIDs, a.ClientID)
		if a.ReplacementClientID != 0 {
			clientIDs = append(clientIDs, a.ReplacementClientID)
		}
	}

	logs := []assignment.CallOutLog{}
	if len(assignmentIDs) > 0 {
		if err := db.Where("assignment_id IN (?)", assignmentIDs).Order("reported_at DESC").
			Find(&logs).Error; err != nil {
			return nil, err
		}
	}
	clients, err := loadClientNames(clientIDs, ctx)
	if err != nil {
		return nil, err
	}
	sites, err := loadSites(ctx)
	if err != nil {
		return nil, err
	}

	rows := [][]string{{"Date", "Worker Name", "Phone", "Work Site", "Reported At", "Reported By",
		"Advance Notice (hours)", "Reason", "Replacements Contacted", "Replacement Found",
		"Replacement Name", "Follow-up Done", "Follow-up Notes"}}
	for _, l := range logs {
		a := assignmentIndex[l.AssignmentID]
		worker := clients[a.ClientID]
		site := sites[a.WorkSiteID]
		replacement := ""
		if a.ReplacementClientID != 0 {
			rc := clients[a.ReplacementClientID]
			replacement = rc.FullName()
		}
		rows = append(rows, []string{
			a.AssignmentDate, worker.FullName(), worker.Phone, site.Name,
			l.ReportedAt.Time().Format("2006-01-02 15:04"), l.ReportedBy,
			fmt.Sprintf("%d", l.AdvanceNoticeHours), l.Reason,
			fmt.Sprintf("%d", l.ReplacementContactedCount), yesNo(a.ReplacementFound),
			replacement, yesNo(l.ClientContactedAfter), l.FollowUpNotes,
		})
	}
	return rows, nil
}

// TodaysAssignmentsReport is the morning dispatch sheet: confirmed and
// in-progress assignments for today, grouped by site.
func TodaysAssignmentsReport(ctx context.Context) ([][]string, error) {
	today := time.Now().Format("2006-01-02")
	db := persistence.ActiveDataSourceManager.GormDB(ctx)

	assignments := []assignment.WorkAssignment{}
	if err := db.Where("assignment_date = ? AND status IN (?)", today,
		[]string{assignment.StatusConfirmed, assignment.StatusInProgress}).
		Order("work_site_id ASC, start_time ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}

	clientIDs := []types.ID{}
	for _, a := range assignments {
		clientIDs = append(clientIDs, a.ClientID)
	}
	clients, err := loadClientNames(clientIDs, ctx)
	if err != nil {
		return nil, err
	}
	sites, err := loadSites(ctx)
	if err != nil {
		return nil, err
	}

	rows := [][]string{{"Work Site", "Worker Name", "Phone", "Start Time", "End Time",
		"Status", "Site Supervisor", "Supervisor Phone", "Notes"}}
	for _, a := range assignments {
		worker := clients[a.ClientID]
		site := sites[a.WorkSiteID]
		rows = append(rows, []string{
			site.Name, worker.FullName(), worker.Phone, a.StartTime, a.EndTime,
			a.Status, site.SupervisorName, site.SupervisorPhone, a.AssignmentNotes,
		})
	}
	return rows, nil
}
