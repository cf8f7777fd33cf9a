package store

import (
	"context"
	"testing"

	"github.com/erazemk/pekarna/internal/db"
	"github.com/erazemk/pekarna/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "testuser", "hash123", model.RoleBaker)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if user.Role != model.RoleBaker {
		t.Errorf("expected role 'baker', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", got.Username)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "hash", model.RoleAdmin)

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("expected alice, got %+v", user)
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestUpsertUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := UpsertUser(ctx, database, "mojca", "old", model.RoleBaker)
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	second, err := UpsertUser(ctx, database, "mojca", "new", model.RoleManager)
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected the same user, got ids %d and %d", first.ID, second.ID)
	}
	if second.PasswordHash != "new" || second.Role != model.RoleManager {
		t.Errorf("user not updated: %+v", second)
	}

	users, _ := ListUsers(ctx, database)
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}
