package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleStaff, true},
		{RoleAdmin, RoleUser, true},
		{RoleStaff, RoleAdmin, false},
		{RoleStaff, RoleStaff, true},
		{RoleStaff, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleUser, RoleStaff, false},
		{RoleUser, RoleUser, true},
		// Unknown roles fail-closed.
		{"unknown", RoleUser, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleUser, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestDisplayName(t *testing.T) {
	u := &User{Username: "jdoe"}
	if u.DisplayName() != "jdoe" {
		t.Errorf("expected username fallback, got %q", u.DisplayName())
	}
	u.FirstName = "Jane"
	if u.DisplayName() != "Jane" {
		t.Errorf("expected trimmed first name, got %q", u.DisplayName())
	}
	u.LastName = "Doe"
	if u.DisplayName() != "Jane Doe" {
		t.Errorf("expected full name, got %q", u.DisplayName())
	}
}
