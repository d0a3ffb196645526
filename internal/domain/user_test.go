package domain

import "testing"

func TestNewUser(t *testing.T) {
	user, err := NewUser(100, "alice", "Alice Example", RoleManager)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !user.Active {
		t.Error("Expected new user to be active")
	}

	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}

	// Test missing ID
	_, err = NewUser(0, "alice", "Alice Example", RoleManager)
	if err != ErrUserIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrUserIDEmpty, err)
	}

	// Test unknown role
	_, err = NewUser(100, "alice", "Alice Example", Role("admin"))
	if err != ErrInvalidRole {
		t.Errorf("Expected error %v, got %v", ErrInvalidRole, err)
	}
}

func TestUserIsManager(t *testing.T) {
	manager, err := NewUser(100, "alice", "Alice Example", RoleManager)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	executor, err := NewUser(200, "bob", "Bob Example", RoleExecutor)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !manager.IsManager() {
		t.Error("Expected manager role to report IsManager")
	}

	if executor.IsManager() {
		t.Error("Expected executor role to not report IsManager")
	}
}
