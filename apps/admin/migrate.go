package main

import (
	"github.com/safisha/backend/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate() error {
	if err := migrateFunc(cli.db); err != nil {
		return err
	}
	logger.Println("database schema is up to date")
	return nil
}
