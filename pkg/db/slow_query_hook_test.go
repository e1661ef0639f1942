package db

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"paytrack/pkg/config"
)

func TestDescribeSQL(t *testing.T) {
	tests := []struct {
		sql       string
		operation string
		table     string
	}{
		{"SELECT id FROM payments WHERE project_id = $1", "select", "payments"},
		{"\n  INSERT INTO projects (id, name) VALUES ($1, $2)", "insert", "projects"},
		{"UPDATE payments SET status = 'paid'", "update", "payments"},
		{"DELETE FROM tasks WHERE id = $1", "delete", "tasks"},
		{"", "unknown", "unknown"},
		{"BEGIN", "begin", "unknown"},
	}
	for _, tt := range tests {
		op, table := describeSQL(tt.sql)
		assert.Equal(t, tt.operation, op, tt.sql)
		assert.Equal(t, tt.table, table, tt.sql)
	}
}

func TestDSN_DefaultsSSLMode(t *testing.T) {
	assert.Contains(t, DSN(config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "paytrack"}), "sslmode=disable")
}
