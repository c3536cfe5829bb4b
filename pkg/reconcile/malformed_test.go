package reconcile_test

import (
	"testing"

	"github.com/platinummonkey/grafana-sync/pkg/grafana"
	"github.com/platinummonkey/grafana-sync/pkg/reconcile"
	"github.com/stretchr/testify/assert"
)

func TestIsMalformed(t *testing.T) {
	tests := []struct {
		name string
		user grafana.User
		want bool
	}{
		{"empty email", grafana.User{Login: "bob"}, true},
		{"email without at", grafana.User{Login: "bob", Email: "bob"}, true},
		{"email equals login", grafana.User{Login: "bob@x.com", Email: "bob@x.com"}, true},
		{"email differs from login", grafana.User{Login: "bob", Email: "bob@x.com"}, false},
		{"email differs only by case", grafana.User{Login: "Bob@x.com", Email: "bob@x.com"}, false},
		{"empty login with valid email", grafana.User{Email: "bob@x.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconcile.IsMalformed(tt.user))
		})
	}
}

func TestFilterMalformed(t *testing.T) {
	users := []grafana.User{
		{ID: 1, Login: "alice", Email: "alice@x.com"},
		{ID: 2, Login: "bob"},
		{ID: 3, Login: "carol", Email: "carol"},
		{ID: 4, Login: "dave@x.com", Email: "dave@x.com"},
	}

	malformed := reconcile.FilterMalformed(users)

	ids := make([]int64, 0, len(malformed))
	for _, u := range malformed {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []int64{2, 3, 4}, ids)
	assert.Empty(t, reconcile.FilterMalformed(users[:1]))
}

func TestLookupQuery(t *testing.T) {
	tests := []struct {
		name string
		user grafana.User
		want string
	}{
		{"email with at", grafana.User{Login: "bob@x.com", Email: "bob@x.com"}, `email:"bob@x.com"`},
		{"empty email uses login", grafana.User{Login: "bob"}, `nickname:"bob"`},
		{"email without at uses login", grafana.User{Login: "bob", Email: "bobby"}, `nickname:"bob"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconcile.LookupQuery(tt.user))
		})
	}
}
