package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
		ok   bool
	}{
		{"end_user", RoleEndUser, true},
		{"agent", RoleAgent, true},
		{"admin", RoleAdmin, true},
		{"Admin", "", false},
		{"manager", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseRole(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleIsStaff(t *testing.T) {
	assert.False(t, RoleEndUser.IsStaff())
	assert.True(t, RoleAgent.IsStaff())
	assert.True(t, RoleAdmin.IsStaff())
}

func TestUserCanBeAssignee(t *testing.T) {
	tests := []struct {
		name string
		user User
		want bool
	}{
		{"active agent", User{Role: RoleAgent, IsActive: true}, true},
		{"active admin", User{Role: RoleAdmin, IsActive: true}, true},
		{"inactive agent", User{Role: RoleAgent, IsActive: false}, false},
		{"active end user", User{Role: RoleEndUser, IsActive: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.CanBeAssignee())
		})
	}
}
