package store

import (
	"testing"
)

func TestUserCRUD(t *testing.T) {
	_, us := setupTestDB(t)

	u, err := us.Create("jane@example.com", "hash1", "Jane", "Doe", false)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "jane@example.com" || u.IsAdmin {
		t.Errorf("created user = %+v", u)
	}
	if !u.IsActive {
		t.Error("new user should be active")
	}

	got, err := us.GetByEmail("jane@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("get by email = %+v", got)
	}

	updated, err := us.Update(u.ID, "jane@example.com", "Jane", "Smith", true, true)
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.LastName != "Smith" || !updated.IsAdmin {
		t.Errorf("updated user = %+v", updated)
	}

	if err := us.UpdatePassword(u.ID, "hash2"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	got, _ = us.GetByID(u.ID)
	if got.PasswordHash != "hash2" {
		t.Errorf("password hash = %q", got.PasswordHash)
	}

	if err := us.Delete(u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	got, err = us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get deleted user: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted user")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	_, us := setupTestDB(t)

	got, err := us.GetByID(404)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	_, us := setupTestDB(t)

	if _, err := us.Create("dup@example.com", "h", "", "", false); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("dup@example.com", "h", "", "", false); err == nil {
		t.Error("expected unique constraint violation")
	}
}

func TestUpdatePasswordNotFound(t *testing.T) {
	_, us := setupTestDB(t)

	if err := us.UpdatePassword(404, "h"); err == nil {
		t.Error("expected error for nonexistent user")
	}
}

func TestDisplayNameFallsBackToEmail(t *testing.T) {
	_, us := setupTestDB(t)

	u, err := us.Create("anon@example.com", "h", "", "", false)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.DisplayName() != "anon@example.com" {
		t.Errorf("display name = %q", u.DisplayName())
	}
}
