//go:build integration || !unit

package mysql_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"review_dashboard/internal/domain"
	mysqlrepo "review_dashboard/internal/storage/mysql"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "..", "db", "migrations")
	}
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	return dir
}

func applyMigrations(t *testing.T, exec func(string) error) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if err := exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func review(src domain.SourceID, ext string, rating int, created time.Time) domain.Review {
	resp := "Thanks!"
	r := domain.Review{
		SourceID:     src,
		ExternalID:   ext,
		PropertyID:   "prop_1",
		PropertyName: "Modern Loft",
		GuestName:    "Ana",
		Rating:       rating,
		Body:         "Spotless and central",
		CreatedAt:    created,
		Channel:      "Airbnb",
		Categories:   map[string]int{domain.CategoryCleanliness: rating},
		HostResponse: &resp,
		Verified:     true,
	}
	r.Prepare(created)
	return r
}

func TestRepo_MySQL_ReviewLifecycle(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=reviews",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?multiStatements=true&charset=utf8mb4",
		"root", hostPort, "reviews")

	ctx := context.Background()
	var repo *mysqlrepo.Repo
	if err := pool.Retry(func() error {
		db, e := mysqlrepo.Open(ctx, dsn)
		if e != nil {
			return e
		}
		t.Cleanup(func() { _ = db.Close() })
		applyMigrations(t, func(q string) error { _, err := db.ExecContext(ctx, q); return err })
		repo = mysqlrepo.New(db)
		return nil
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r1 := review(domain.SourcePrimary, "r1", 5, base)
	r2 := review(domain.SourcePrimary, "r2", 2, base.Add(time.Hour))
	r3 := review(domain.SourcePlaces, "r1", 4, base.Add(2*time.Hour))
	for _, r := range []domain.Review{r1, r2, r3} {
		if err := repo.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s: %v", r.ExternalID, err)
		}
	}

	// unique (source_id, external_id)
	if err := repo.Insert(ctx, review(domain.SourcePrimary, "r1", 3, base)); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, err := repo.FindByKey(ctx, r1.Key())
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if got.ID != r1.ID || got.Categories[domain.CategoryCleanliness] != 5 || got.HostResponse == nil || !got.CreatedAt.Equal(base) {
		t.Fatalf("unexpected review: %+v", got)
	}
	if _, err := repo.FindByKey(ctx, domain.Key{Source: domain.SourceManual, ExternalID: "r1"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	page, err := repo.List(ctx, domain.ListOptions{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 3 || page.Pages != 2 || len(page.Items) != 2 || page.Items[0].ID != r3.ID {
		t.Fatalf("unexpected page: %+v", page)
	}

	high, err := repo.ListAll(ctx, domain.ReviewFilter{MinRating: 4, Search: "SPOTLESS"})
	if err != nil || len(high) != 2 {
		t.Fatalf("ListAll: %d %v", len(high), err)
	}

	by := "Manager"
	now := time.Now().UTC().Truncate(time.Millisecond)
	ch, err := repo.SetApproval(ctx, []string{r2.ID, r1.ID, "missing"}, domain.ApprovalApproved, &by, &now)
	if err != nil {
		t.Fatalf("SetApproval: %v", err)
	}
	if ch.Matched != 2 || ch.Changed != 2 {
		t.Fatalf("unexpected change: %+v", ch)
	}
	none, err := repo.SetApproval(ctx, []string{"missing"}, domain.ApprovalApproved, &by, &now)
	if err != nil || none.Matched != 0 {
		t.Fatalf("expected zero matched, got %+v %v", none, err)
	}

	rs, err := repo.GetByIDs(ctx, []string{r2.ID, r1.ID})
	if err != nil || len(rs) != 2 || rs[0].ID != r2.ID || rs[0].ApprovalStatus != domain.ApprovalApproved {
		t.Fatalf("GetByIDs: %+v %v", rs, err)
	}

	if err := repo.Delete(ctx, r3.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, r3.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	n, err := repo.Count(ctx, domain.ReviewFilter{})
	if err != nil || n != 2 {
		t.Fatalf("Count: %d %v", n, err)
	}
}
