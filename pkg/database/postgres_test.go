package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/class-scheduler-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "scheduler",
		Password: "pa ss'word",
		Name:     "class_scheduler",
		SSLMode:  "disable",
	})

	assert.Equal(t, `host=db.internal port=5432 user=scheduler password='pa ss\'word' dbname=class_scheduler sslmode=disable`, dsn)
}

func TestDSNSkipsEmptyValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, Name: "class_scheduler"})
	assert.Equal(t, "host=localhost port=5432 dbname=class_scheduler", dsn)
}
