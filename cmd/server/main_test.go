package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/clinic-scheduler/internal/auth"
)

func TestIssueToken(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute)

	token, err := issueToken(m, auth.Identity{UserID: "u1", Role: auth.RolePractitioner, PractitionerID: "p1"})
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, auth.RolePractitioner, claims.Role)
	assert.Equal(t, "p1", claims.PractitionerID)
}

func TestIssueToken_Invalid(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute)

	tests := []struct {
		name string
		id   auth.Identity
	}{
		{"missing user", auth.Identity{Role: auth.RoleStaff}},
		{"unknown role", auth.Identity{UserID: "u1", Role: "admin"}},
		{"practitioner without link", auth.Identity{UserID: "u1", Role: auth.RolePractitioner}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issueToken(m, tt.id)
			assert.Error(t, err)
		})
	}
}
