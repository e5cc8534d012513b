package user

import (
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name       string
		cmd        Command
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "valid",
			cmd:       Command{Email: ptr("ada@example.com"), Name: ptr("Ada"), Password: ptr("Secret123")},
			wantValid: true,
		},
		{
			name:       "missing everything",
			cmd:        Command{},
			wantFields: []string{"email", "name", "password"},
		},
		{
			name:       "bad email and weak password",
			cmd:        Command{Email: ptr("ada"), Name: ptr("Ada"), Password: ptr("secretsecret")},
			wantFields: []string{"email", "password"},
		},
		{
			name:       "short password",
			cmd:        Command{Email: ptr("ada@example.com"), Name: ptr("Ada"), Password: ptr("Ab1")},
			wantFields: []string{"password"},
		},
		{
			name:       "unknown role",
			cmd:        Command{Email: ptr("ada@example.com"), Name: ptr("Ada"), Password: ptr("Secret123"), Role: ptr(Role("root"))},
			wantFields: []string{"role"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateCreate(tt.cmd)
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors %v)", got.Valid, tt.wantValid, got.Errors)
			}
			if len(got.Errors) != len(tt.wantFields) {
				t.Errorf("Errors = %v, want fields %v", got.Errors, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if _, ok := got.Errors[f]; !ok {
					t.Errorf("missing error for %q in %v", f, got.Errors)
				}
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	if got := ValidateUpdate(Command{}); got.Valid || got.Errors["body"] == "" {
		t.Errorf("empty update should be rejected, got %+v", got)
	}
	if got := ValidateUpdate(Command{Name: ptr("Grace")}); !got.Valid {
		t.Errorf("name-only update should be valid, got %v", got.Errors)
	}
	if got := ValidateUpdate(Command{Name: ptr("  ")}); got.Valid {
		t.Error("blank name should be rejected")
	}
	if got := ValidateUpdate(Command{Status: ptr(Status("gone"))}); got.Errors["status"] == "" {
		t.Errorf("unknown status should be rejected, got %v", got.Errors)
	}
}

func TestNewAndApply(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u := New(Command{Email: ptr("  Ada@Example.com "), Name: ptr(" Ada ")}, now)

	if u.Email != "ada@example.com" {
		t.Errorf("Email = %q", u.Email)
	}
	if u.Name != "Ada" {
		t.Errorf("Name = %q", u.Name)
	}
	if u.Role != RoleUser || u.Status != StatusActive {
		t.Errorf("defaults = %s/%s", u.Role, u.Status)
	}
	if !u.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v", u.CreatedAt)
	}

	later := now.Add(time.Hour)
	u2 := Apply(u, Command{Role: ptr(RoleAdmin)}, later)
	if !u2.IsAdmin() || u2.Email != u.Email || !u2.UpdatedAt.Equal(later) {
		t.Errorf("Apply() = %+v", u2)
	}
	if u.IsAdmin() {
		t.Error("Apply() mutated its input")
	}
}

func TestValidateLogin(t *testing.T) {
	if got := ValidateLogin(LoginRequest{}); len(got.Errors) != 2 {
		t.Errorf("Errors = %v, want email and password", got.Errors)
	}
	if got := ValidateLogin(LoginRequest{Email: "a@b.co", Password: "x"}); !got.Valid {
		t.Errorf("Errors = %v", got.Errors)
	}
}
