package main

import (
	"log"

	"hirehall/account"
	"hirehall/client/es"
	"hirehall/client/s3"
	"hirehall/domain/assignment"
	"hirehall/domain/availability"
	"hirehall/domain/casenote"
	"hirehall/domain/client"
	"hirehall/domain/document"
	"hirehall/domain/servicerequest"
	"hirehall/domain/worksite"
	"hirehall/indices"
	"hirehall/infra/tracing"
	"hirehall/persistence"
	"hirehall/servehttp"
	"hirehall/session"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const serviceName = "hirehall"

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Infof("no .env file loaded: %v", err)
	}

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		log.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			log.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		log.Fatalf("database connection failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB(nil).AutoMigrate(
		&account.User{},
		&account.WorkerAccount{},
		&session.SessionToken{},
		&client.Client{},
		&casenote.CaseNote{},
		&document.Document{},
		&worksite.WorkSite{},
		&availability.ClientAvailability{},
		&assignment.WorkAssignment{},
		&assignment.CallOutLog{},
		&servicerequest.ServiceRequest{},
	).Error
	if err != nil {
		log.Fatalf("database migration failed %v\n", err)
	}

	tracingCloser, err := tracing.Bootstrap(serviceName)
	if err != nil {
		log.Fatalf("tracing bootstrap failed %v\n", err)
	}
	defer tracingCloser.Close()

	s3.Bootstrap()
	es.CreateClientFromEnv()
	indices.Bootstrap()

	engine := servehttp.BuildEngine()
	servehttp.StartHTTPServer(engine)
}
