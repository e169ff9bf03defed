package db_test

import (
	"testing"

	"github.com/ricirt/venturematch/internal/db"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/vm?sslmode=disable", "pgx5://u:p@localhost:5432/vm?sslmode=disable"},
		{"postgresql://u:p@db/vm", "pgx5://u:p@db/vm"},
		{"pgx5://u:p@db/vm", "pgx5://u:p@db/vm"},
	}
	for _, tc := range tests {
		if got := db.MigrationURL(tc.in); got != tc.want {
			t.Fatalf("MigrationURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
