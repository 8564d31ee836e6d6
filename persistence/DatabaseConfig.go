package persistence

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/caarlos0/env/v6"
)

type DatabaseConfig struct {
	// DATABASE_URL mysql DSN, e.g. root:root@(127.0.0.1:3306)/hirehall?charset=utf8mb4&parseTime=True&loc=Local
	DriverType string `env:"DATABASE_DRIVER" envDefault:"mysql"`
	DriverArgs string `env:"DATABASE_URL"`
}

func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	config := DatabaseConfig{}
	if err := env.Parse(&config); err != nil {
		return nil, err
	}
	if config.DriverArgs == "" {
		return nil, errors.New("environment variable DATABASE_URL is not set")
	}
	return &config, nil
}

// PrepareMysqlDatabase creates the database named in the DSN when it does not exist yet.
func PrepareMysqlDatabase(driverArgs string) error {
	dsnWithoutDatabase, databaseName, err := splitMysqlDatabaseName(driverArgs)
	if err != nil {
		return err
	}
	db, err := sql.Open("mysql", dsnWithoutDatabase)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS " + databaseName +
		" DEFAULT CHARACTER SET utf8mb4 DEFAULT COLLATE utf8mb4_general_ci")
	return err
}

func splitMysqlDatabaseName(driverArgs string) (dsnWithoutDatabase, databaseName string, err error) {
	slash := strings.Index(driverArgs, "/")
	if slash < 0 {
		return "", "", errors.New("invalid mysql DSN: " + driverArgs)
	}
	tail := driverArgs[slash+1:]
	query := ""
	if q := strings.Index(tail, "?"); q >= 0 {
		query = tail[q:]
		tail = tail[:q]
	}
	if tail == "" {
		return "", "", errors.New("mysql DSN has no database name: " + driverArgs)
	}
	return driverArgs[:slash+1] + query, tail, nil
}
