package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gitgud-app/gitgud/internal/app/identity"
	"github.com/gitgud-app/gitgud/internal/domain"
	"github.com/gitgud-app/gitgud/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestResolve_AutoProvision(t *testing.T) {
	db := newTestDB(t)
	r, err := identity.NewResolver(db, 8, true, nil)
	if err != nil {
		t.Fatalf("NewResolver() error: %v", err)
	}
	ctx := context.Background()

	id, err := r.Resolve(ctx, "  Ada@Example.com ")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	u, _ := db.GetUser(ctx, id)
	if u == nil || u.Email != "ada@example.com" || u.Name != "ada" || u.Level != 1 {
		t.Fatalf("provisioned user = %+v", u)
	}

	again, err := r.Resolve(ctx, "ada@example.com")
	if err != nil || again != id {
		t.Errorf("second Resolve() = %q, %v; want %q", again, err, id)
	}
}

func TestResolve_UnknownWithoutProvisioning(t *testing.T) {
	db := newTestDB(t)
	r, _ := identity.NewResolver(db, 8, false, nil)

	_, err := r.Resolve(context.Background(), "ghost@example.com")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func TestResolve_Existing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.CreateUser(ctx, domain.User{ID: "u1", Email: "bob@example.com"}); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	r, _ := identity.NewResolver(db, 8, false, nil)

	id, err := r.Resolve(ctx, "BOB@example.com")
	if err != nil || id != "u1" {
		t.Errorf("Resolve() = %q, %v; want u1", id, err)
	}
}

func TestResolve_EmptyEmail(t *testing.T) {
	r, _ := identity.NewResolver(newTestDB(t), 8, true, nil)
	if _, err := r.Resolve(context.Background(), "  "); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}
