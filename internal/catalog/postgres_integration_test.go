//go:build integration

// Integration tests for the Postgres catalog repository. They start a
// disposable PostgreSQL container and apply the real migrations.
//
// Run with: go test -tags=integration -v ./internal/catalog/...
package catalog

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres launches a PostgreSQL container, applies all up
// migrations, and returns an open connection.
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("doecerto"),
		tcpostgres.WithUsername("doecerto"),
		tcpostgres.WithPassword("doecerto"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	applyMigrations(t, db)
	return db
}

// applyMigrations runs every *.up.sql file from the migrations
// directory in lexical order.
func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()

	dir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read migrations dir: %v", err)
	}

	var ups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	for _, name := range ups {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("failed to read migration %s: %v", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			t.Fatalf("failed to apply migration %s: %v", name, err)
		}
	}
}

// seedOng inserts a user + ONG + profile with the given categories.
func seedOng(t *testing.T, db *sql.DB, id int64, name, status string, avgRating *float64, ratingCount int, createdAt time.Time, categoryIDs []int64) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO users (id, name, email, password_hash, role) VALUES ($1, $2, $3, 'x', 'ong')`,
		id, name, name+"@example.org")
	if err != nil {
		t.Fatalf("failed to insert user %d: %v", id, err)
	}
	_, err = db.Exec(
		`INSERT INTO ongs (user_id, cnpj, verification_status, average_rating, number_of_ratings, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, name+"-cnpj", status, avgRating, ratingCount, createdAt)
	if err != nil {
		t.Fatalf("failed to insert ong %d: %v", id, err)
	}

	var profileID int64
	err = db.QueryRow(`INSERT INTO ong_profiles (ong_id) VALUES ($1) RETURNING id`, id).Scan(&profileID)
	if err != nil {
		t.Fatalf("failed to insert profile for ong %d: %v", id, err)
	}
	for _, catID := range categoryIDs {
		_, err = db.Exec(
			`INSERT INTO ong_profile_categories (profile_id, category_id) VALUES ($1, $2)`,
			profileID, catID)
		if err != nil {
			t.Fatalf("failed to link category %d: %v", catID, err)
		}
	}
}

func TestPostgresRepository_ListVerified(t *testing.T) {
	db := startPostgres(t)
	repo := NewPostgresRepository(db)

	for _, cat := range []struct {
		id   int64
		name string
	}{{1, "Saúde"}, {5, "Educação"}, {8, "Animais"}} {
		if _, err := db.Exec(`INSERT INTO categories (id, name) VALUES ($1, $2)`, cat.id, cat.name); err != nil {
			t.Fatalf("failed to insert category: %v", err)
		}
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rated := func(v float64) *float64 { return &v }
	seedOng(t, db, 3, "Instituto Viver Bem", "verified", rated(4.0), 12, base.AddDate(0, 1, 0), []int64{1})
	seedOng(t, db, 7, "Casa da Esperanca", "verified", rated(3.0), 30, base.AddDate(0, 2, 0), []int64{1, 5})
	seedOng(t, db, 9, "SOS Animais", "verified", rated(5.0), 8, base.AddDate(0, 3, 0), []int64{8})
	seedOng(t, db, 11, "Fundacao Semear", "verified", nil, 0, base.AddDate(0, 4, 0), []int64{5})
	seedOng(t, db, 20, "ONG Pendente", "pending", rated(5.0), 50, base, []int64{1})
	seedOng(t, db, 21, "ONG Rejeitada", "rejected", rated(5.0), 50, base, []int64{1})

	t.Run("only verified ongs are eligible", func(t *testing.T) {
		candidates, err := repo.ListVerified(context.Background(), Query{
			OrderBy: SortByCreatedAt, Direction: Asc, Limit: 100,
		})
		if err != nil {
			t.Fatalf("ListVerified failed: %v", err)
		}
		if len(candidates) != 4 {
			t.Fatalf("expected 4 verified ongs, got %d", len(candidates))
		}
		for _, c := range candidates {
			if c.ID == 20 || c.ID == 21 {
				t.Errorf("non-verified ong %d returned", c.ID)
			}
		}
	})

	t.Run("null rating sorts last under desc", func(t *testing.T) {
		candidates, err := repo.ListVerified(context.Background(), Query{
			OrderBy: SortByAverageRating, Direction: Desc, Limit: 100,
		})
		if err != nil {
			t.Fatalf("ListVerified failed: %v", err)
		}
		wantOrder := []int64{9, 3, 7, 11}
		for i, want := range wantOrder {
			if candidates[i].ID != want {
				t.Errorf("position %d: expected id %d, got %d", i, want, candidates[i].ID)
			}
		}
		if candidates[3].AverageRating != nil {
			t.Error("expected unrated ong to carry a nil average rating")
		}
	})

	t.Run("category filter restricts eligibility", func(t *testing.T) {
		candidates, err := repo.ListVerified(context.Background(), Query{
			CategoryIDs: []int64{1},
			OrderBy:     SortByCreatedAt, Direction: Asc, Limit: 100,
		})
		if err != nil {
			t.Fatalf("ListVerified failed: %v", err)
		}
		if len(candidates) != 2 {
			t.Fatalf("expected 2 ongs with category 1, got %d", len(candidates))
		}
	})

	t.Run("search matches name or category name", func(t *testing.T) {
		byName, err := repo.ListVerified(context.Background(), Query{
			SearchTerm: "esperanca",
			OrderBy:    SortByAverageRating, Direction: Desc, Limit: 100,
		})
		if err != nil {
			t.Fatalf("ListVerified failed: %v", err)
		}
		if len(byName) != 1 || byName[0].ID != 7 {
			t.Fatalf("expected only ong 7 for name search, got %v", byName)
		}

		byCategory, err := repo.ListVerified(context.Background(), Query{
			SearchTerm: "educa",
			OrderBy:    SortByAverageRating, Direction: Desc, Limit: 100,
		})
		if err != nil {
			t.Fatalf("ListVerified failed: %v", err)
		}
		if len(byCategory) != 2 {
			t.Fatalf("expected 2 ongs with a matching category name, got %d", len(byCategory))
		}
	})

	t.Run("categories aggregate with ids and names aligned", func(t *testing.T) {
		candidates, err := repo.ListVerified(context.Background(), Query{
			OrderBy: SortByCreatedAt, Direction: Asc, Limit: 100,
		})
		if err != nil {
			t.Fatalf("ListVerified failed: %v", err)
		}
		for _, c := range candidates {
			if c.ID != 7 {
				continue
			}
			if len(c.Categories) != 2 {
				t.Fatalf("expected 2 categories for ong 7, got %d", len(c.Categories))
			}
			if c.Categories[0].ID != 1 || c.Categories[0].Name != "Saúde" {
				t.Errorf("unexpected first category %+v", c.Categories[0])
			}
		}
	})
}
