package database

import (
	"testing"

	"patient-management/config"

	"github.com/stretchr/testify/assert"
)

func TestMigrationURL(t *testing.T) {
	got := MigrationURL(config.DBConfig{
		Host:     "db",
		Port:     "5432",
		User:     "clinic",
		Password: "s3cret@",
		Name:     "patients",
	})

	assert.Equal(t, "pgx5://clinic:s3cret%40@db:5432/patients?sslmode=disable", got)
}

func TestMigrationFilesEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 4)
}
