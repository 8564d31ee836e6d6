package servehttp

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hirehall/account"
	"hirehall/bizerror"
	"hirehall/domain/assignment"
	"hirehall/domain/casenote"
	"hirehall/domain/client"
	"hirehall/domain/document"
	"hirehall/domain/servicerequest"
	"hirehall/domain/worksite"
	"hirehall/indices"
	"hirehall/indices/search"
	"hirehall/infra/tracing"
	"hirehall/reports"
	"hirehall/session"
	"hirehall/sessions"
	"hirehall/workerapi"

	"github.com/gin-gonic/gin"
)

// BuildEngine assembles middlewares and every REST surface: staff CRUD
// behind the cookie session filter, the worker portal behind the token
// filter, and the open login endpoints.
func BuildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), bizerror.ErrorHandling(), tracing.TracingIngress())

	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "hirehall")
	})

	sessions.RegisterSessionsHandler(engine)
	sessions.RegisterWorkerSessionsHandler(engine)

	staffAuth := session.StaffAuthFilter()
	client.RegisterClientsRestAPI(engine, staffAuth)
	casenote.RegisterCaseNotesRestAPI(engine, staffAuth)
	document.RegisterDocumentsRestAPI(engine, staffAuth)
	worksite.RegisterWorkSitesRestAPI(engine, staffAuth)
	assignment.RegisterAssignmentsRestAPI(engine, staffAuth)
	servicerequest.RegisterServiceRequestsRestAPI(engine, staffAuth)
	account.RegisterUsersRestAPI(engine, staffAuth)
	account.RegisterWorkerAccountsRestAPI(engine, staffAuth)
	search.RegisterClientSearchRestAPI(engine, staffAuth)
	indices.RegisterIndicesRestAPI(engine, staffAuth)
	reports.RegisterReportsRestAPI(engine, staffAuth)

	workerapi.RegisterWorkerRestAPI(engine, session.WorkerAuthFilter())

	return engine
}

func StartHTTPServer(engine *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: engine,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// will call os.Exit(1)
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 send syscall.SIGINT
	// kill -9 send syscall.SIGKILL, can't be caught
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[QUIT] shutdown signal has been received, the service will exit in 3 seconds.")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// graceful shutdown http.Server
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[QUIT] http server shutdown failed: %v\n", err)
	}
	log.Println("[QUIT] http server is shutdown gracefully, new request will be rejected.")

	// waiting for ctx.Done().
	select {
	case <-ctx.Done():
	}
	log.Println("[QUIT] service exiting")
}
