package assignment_test

import (
	"context"
	"testing"
	"time"

	"hirehall/bizerror"
	"hirehall/domain/assignment"
	"hirehall/domain/worksite"
	"hirehall/persistence"
	"hirehall/session"
	"hirehall/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartMysqlTestDatabase("hirehall")
	*testDatabase = db
	Expect(db.DS.GormDB(nil).AutoMigrate(&worksite.WorkSite{},
		&assignment.WorkAssignment{}, &assignment.CallOutLog{}).Error).To(BeNil())

	persistence.ActiveDataSourceManager = db.DS
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func buildStaffSession(name string) *session.Session {
	return &session.Session{Token: "test-token", Identity: session.Identity{ID: 1, Name: name},
		Role: session.RoleStaff, Context: context.Background()}
}

func buildSite(name string, capacity int) *worksite.WorkSite {
	site, err := worksite.CreateWorkSite(&worksite.WorkSiteCreation{
		Name: name, Address: "some street 1",
		TypicalStartTime: "06:00", TypicalEndTime: "12:00",
		MaxWorkersPerShift: capacity,
	}, buildStaffSession("ana"))
	Expect(err).To(BeNil())
	return site
}

func TestCreateAssignment(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should enforce site capacity per date at creation time", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Mission Pit Stop", 2)

		creation := assignment.AssignmentCreation{
			WorkSiteID: site.ID, AssignmentDate: "2025-03-01", StartTime: "06:00", EndTime: "12:00"}

		creation.ClientID = 1
		a, err := assignment.CreateAssignment(&creation, sec)
		Expect(err).To(BeNil())
		Expect(a.Status).To(Equal(assignment.StatusPending))
		Expect(a.AssignedBy).To(Equal("ana"))

		creation.ClientID = 2
		_, err = assignment.CreateAssignment(&creation, sec)
		Expect(err).To(BeNil())

		creation.ClientID = 3
		_, err = assignment.CreateAssignment(&creation, sec)
		Expect(err).ToNot(BeNil())
		capacityErr, ok := err.(*bizerror.ErrCapacityExceeded)
		Expect(ok).To(BeTrue())
		Expect(capacityErr.Error()).To(Equal("Mission Pit Stop is already at capacity (2 workers) for 2025-03-01"))

		// another date of the same site is still open
		creation.AssignmentDate = "2025-03-02"
		_, err = assignment.CreateAssignment(&creation, sec)
		Expect(err).To(BeNil())
	})

	t.Run("should not count terminal and called-out assignments toward capacity", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Soma Pit Stop", 1)

		creation := assignment.AssignmentCreation{ClientID: 1,
			WorkSiteID: site.ID, AssignmentDate: "2025-03-01", StartTime: "06:00", EndTime: "12:00"}
		a, err := assignment.CreateAssignment(&creation, sec)
		Expect(err).To(BeNil())

		creation.ClientID = 2
		_, err = assignment.CreateAssignment(&creation, sec)
		_, isCapacity := err.(*bizerror.ErrCapacityExceeded)
		Expect(isCapacity).To(BeTrue())

		_, err = assignment.UpdateAssignmentStatus(a.ID, &assignment.StatusUpdating{Status: assignment.StatusCancelled}, sec)
		Expect(err).To(BeNil())

		_, err = assignment.CreateAssignment(&creation, sec)
		Expect(err).To(BeNil())
	})

	t.Run("should reject creation on an inactive site", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Closed Site", 2)
		Expect(worksite.DeactivateWorkSite(site.ID, sec)).To(BeNil())

		_, err := assignment.CreateAssignment(&assignment.AssignmentCreation{ClientID: 1,
			WorkSiteID: site.ID, AssignmentDate: "2025-03-01", StartTime: "06:00", EndTime: "12:00"}, sec)
		Expect(err).To(Equal(bizerror.ErrInvalidState))
	})

	t.Run("should report not found for an unknown site", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		_, err := assignment.CreateAssignment(&assignment.AssignmentCreation{ClientID: 1,
			WorkSiteID: 404, AssignmentDate: "2025-03-01", StartTime: "06:00", EndTime: "12:00"},
			buildStaffSession("ana"))
		Expect(err).To(Equal(gorm.ErrRecordNotFound))
	})
}

func TestQueryAssignments(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should list upcoming assignments soonest-first", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Mission Pit Stop", 5)

		day := func(n int) string { return time.Now().AddDate(0, 0, n).Format("2006-01-02") }
		for _, n := range []int{5, 1, 3} {
			_, err := assignment.CreateAssignment(&assignment.AssignmentCreation{ClientID: 1,
				WorkSiteID: site.ID, AssignmentDate: day(n), StartTime: "06:00", EndTime: "12:00"}, sec)
			Expect(err).To(BeNil())
		}

		records, err := assignment.QueryAssignments(assignment.AssignmentQuery{
			ClientID: 1, Filter: assignment.FilterUpcoming}, context.Background())
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(3))
		Expect(records[0].AssignmentDate).To(Equal(day(1)))
		Expect(records[1].AssignmentDate).To(Equal(day(3)))
		Expect(records[2].AssignmentDate).To(Equal(day(5)))
	})

	t.Run("should bound the upcoming filter with a date range", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Soma Pit Stop", 5)

		day := func(n int) string { return time.Now().AddDate(0, 0, n).Format("2006-01-02") }
		for _, n := range []int{1, 3, 10} {
			_, err := assignment.CreateAssignment(&assignment.AssignmentCreation{ClientID: 1,
				WorkSiteID: site.ID, AssignmentDate: day(n), StartTime: "06:00", EndTime: "12:00"}, sec)
			Expect(err).To(BeNil())
		}

		records, err := assignment.QueryAssignments(assignment.AssignmentQuery{
			ClientID: 1, Filter: assignment.FilterUpcoming, DateEnd: day(7)}, context.Background())
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(2))
		Expect(records[0].AssignmentDate).To(Equal(day(1)))
		Expect(records[1].AssignmentDate).To(Equal(day(3)))
	})
}

func TestConfirmAssignment(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should be scoped to the owning client", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Mission Pit Stop", 2)
		a, err := assignment.CreateAssignment(&assignment.AssignmentCreation{ClientID: 100,
			WorkSiteID: site.ID, AssignmentDate: "2025-03-01", StartTime: "06:00", EndTime: "12:00"}, sec)
		Expect(err).To(BeNil())

		// another client must not even see it
		_, err = assignment.ConfirmAssignment(a.ID, 999, context.Background())
		Expect(err).To(Equal(gorm.ErrRecordNotFound))

		confirmed, err := assignment.ConfirmAssignment(a.ID, 100, context.Background())
		Expect(err).To(BeNil())
		Expect(confirmed.Status).To(Equal(assignment.StatusConfirmed))
		Expect(confirmed.ConfirmedByClient).To(BeTrue())
		Expect(confirmed.ConfirmedAt.IsZero()).To(BeFalse())

		// confirming again is a no-op
		again, err := assignment.ConfirmAssignment(a.ID, 100, context.Background())
		Expect(err).To(BeNil())
		Expect(again.Status).To(Equal(assignment.StatusConfirmed))
	})

	t.Run("should reject confirmation of terminal assignments", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Mission Pit Stop", 2)
		a, err := assignment.CreateAssignment(&assignment.AssignmentCreation{ClientID: 100,
			WorkSiteID: site.ID, AssignmentDate: "2025-03-01", StartTime: "06:00", EndTime: "12:00"}, sec)
		Expect(err).To(BeNil())
		_, err = assignment.UpdateAssignmentStatus(a.ID, &assignment.StatusUpdating{Status: assignment.StatusCancelled}, sec)
		Expect(err).To(BeNil())

		_, err = assignment.ConfirmAssignment(a.ID, 100, context.Background())
		Expect(err).To(Equal(bizerror.ErrInvalidState))
	})
}

func TestCallOutAssignment(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should create exactly one call-out log and reject a second attempt", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Mission Pit Stop", 2)
		a, err := assignment.CreateAssignment(&assignment.AssignmentCreation{ClientID: 100,
			WorkSiteID: site.ID, AssignmentDate: "2025-03-01", StartTime: "06:00", EndTime: "12:00"}, sec)
		Expect(err).To(BeNil())

		hours := 2
		calledOut, err := assignment.CallOutAssignment(100, &assignment.CallOutCreation{
			AssignmentID: a.ID, Reason: "sick", AdvanceNoticeHours: &hours}, "Worker Portal", context.Background())
		Expect(err).To(BeNil())
		Expect(calledOut.Status).To(Equal(assignment.StatusCalledOut))
		Expect(calledOut.CalloutReason).To(Equal("sick"))
		Expect(calledOut.CalledOutAt.IsZero()).To(BeFalse())
		Expect(calledOut.NeedsReplacement()).To(BeTrue())

		logs, err := assignment.QueryCallOutLogs(assignment.CallOutLogQuery{AssignmentID: a.ID}, context.Background())
		Expect(err).To(BeNil())
		Expect(len(logs)).To(Equal(1))
		Expect(logs[0].AdvanceNoticeHours).To(Equal(2))
		Expect(logs[0].ReportedBy).To(Equal("Worker Portal"))
		Expect(logs[0].IsLastMinute).To(BeTrue())

		_, err = assignment.CallOutAssignment(100, &assignment.CallOutCreation{
			AssignmentID: a.ID, Reason: "sick again", AdvanceNoticeHours: &hours}, "Worker Portal", context.Background())
		Expect(err).To(Equal(bizerror.ErrInvalidState))

		logs, err = assignment.QueryCallOutLogs(assignment.CallOutLogQuery{AssignmentID: a.ID}, context.Background())
		Expect(err).To(BeNil())
		Expect(len(logs)).To(Equal(1))
	})

	t.Run("should be scoped to the owning client", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Mission Pit Stop", 2)
		a, err := assignment.CreateAssignment(&assignment.AssignmentCreation{ClientID: 100,
			WorkSiteID: site.ID, AssignmentDate: "2025-03-01", StartTime: "06:00", EndTime: "12:00"}, sec)
		Expect(err).To(BeNil())

		hours := 8
		_, err = assignment.CallOutAssignment(999, &assignment.CallOutCreation{
			AssignmentID: a.ID, Reason: "sick", AdvanceNoticeHours: &hours}, "Worker Portal", context.Background())
		Expect(err).To(Equal(gorm.ErrRecordNotFound))
	})
}

func TestAssignReplacement(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should record replacement and stamp the log", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Mission Pit Stop", 2)
		a, err := assignment.CreateAssignment(&assignment.AssignmentCreation{ClientID: 100,
			WorkSiteID: site.ID, AssignmentDate: "2025-03-01", StartTime: "06:00", EndTime: "12:00"}, sec)
		Expect(err).To(BeNil())

		// replacement requires a called-out assignment
		_, err = assignment.AssignReplacement(a.ID, &assignment.ReplacementAssigning{ReplacementClientID: 300}, sec)
		Expect(err).To(Equal(bizerror.ErrInvalidState))

		hours := 2
		_, err = assignment.CallOutAssignment(100, &assignment.CallOutCreation{
			AssignmentID: a.ID, Reason: "sick", AdvanceNoticeHours: &hours}, "Worker Portal", context.Background())
		Expect(err).To(BeNil())

		replaced, err := assignment.AssignReplacement(a.ID, &assignment.ReplacementAssigning{ReplacementClientID: 300}, sec)
		Expect(err).To(BeNil())
		Expect(replaced.ReplacementFound).To(BeTrue())
		Expect(replaced.ReplacementClientID).To(Equal(types.ID(300)))
		Expect(replaced.NeedsReplacement()).To(BeFalse())

		logs, err := assignment.QueryCallOutLogs(assignment.CallOutLogQuery{AssignmentID: a.ID}, context.Background())
		Expect(err).To(BeNil())
		Expect(len(logs)).To(Equal(1))
		Expect(logs[0].ReplacementFoundAt.IsZero()).To(BeFalse())
	})
}

// the walkthrough of the whole dispatch workflow at one site
func TestDispatchWorkflow(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("capacity, call-out and replacement work together", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := buildStaffSession("ana")
		site := buildSite("Mission Pit Stop", 2)

		creation := assignment.AssignmentCreation{
			WorkSiteID: site.ID, AssignmentDate: "2025-03-01", StartTime: "06:00", EndTime: "12:00"}

		creation.ClientID = 1
		_, err := assignment.CreateAssignment(&creation, sec)
		Expect(err).To(BeNil())

		creation.ClientID = 2
		b, err := assignment.CreateAssignment(&creation, sec)
		Expect(err).To(BeNil())

		creation.ClientID = 3
		_, err = assignment.CreateAssignment(&creation, sec)
		_, isCapacity := err.(*bizerror.ErrCapacityExceeded)
		Expect(isCapacity).To(BeTrue())

		hours := 2
		calledOut, err := assignment.CallOutAssignment(2, &assignment.CallOutCreation{
			AssignmentID: b.ID, Reason: "sick", AdvanceNoticeHours: &hours}, "Worker Portal", context.Background())
		Expect(err).To(BeNil())
		Expect(calledOut.NeedsReplacement()).To(BeTrue())

		// the called-out slot no longer counts, client 3 can now be booked
		creation.ClientID = 3
		_, err = assignment.CreateAssignment(&creation, sec)
		Expect(err).To(BeNil())

		replaced, err := assignment.AssignReplacement(b.ID, &assignment.ReplacementAssigning{ReplacementClientID: 3}, sec)
		Expect(err).To(BeNil())
		Expect(replaced.NeedsReplacement()).To(BeFalse())
	})
}
