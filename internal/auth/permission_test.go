package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaims_MissingPermission(t *testing.T) {
	tests := []struct {
		name     string
		held     PermissionSet
		required []Permission
		want     PermissionSet
	}{
		{
			name:     "one missing",
			held:     NewPermissionSet(WriteGame),
			required: []Permission{ReadAdmin, WriteGame},
			want:     NewPermissionSet(ReadAdmin),
		},
		{
			name:     "superset held",
			held:     NewPermissionSet(ReadAdmin, WriteGame, WriteAdmin),
			required: []Permission{ReadAdmin, WriteGame},
			want:     nil,
		},
		{
			name:     "absent permissions claim",
			held:     nil,
			required: []Permission{WriteAdmin},
			want:     NewPermissionSet(WriteAdmin),
		},
		{
			name:     "nothing required",
			held:     nil,
			required: nil,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := &Claims{Permissions: tt.held}
			assert.Equal(t, tt.want, claims.MissingPermission(tt.required...))
			assert.Equal(t, tt.want == nil, claims.HasAll(tt.required...))
		})
	}
}

func TestPermissionSet_JSON(t *testing.T) {
	var set PermissionSet
	require.NoError(t, json.Unmarshal([]byte(`["write:game","read:admin","read:unknown"]`), &set))
	assert.True(t, set.Has(WriteGame))
	assert.True(t, set.Has(ReadAdmin))
	assert.Len(t, set, 2)
	assert.Equal(t, []string{"ReadAdmin", "WriteGame"}, set.Names())

	out, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["read:admin","write:game"]`, string(out))

	var empty PermissionSet
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.Empty(t, empty)
}

func TestClaims_AudienceShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "single string", raw: `{"aud":"https://api.tero","sub":"auth0|1"}`, want: []string{"https://api.tero"}},
		{name: "array", raw: `{"aud":["https://api.tero","https://tero.eu.auth0.com/userinfo"],"sub":"auth0|1"}`, want: []string{"https://api.tero", "https://tero.eu.auth0.com/userinfo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Claims
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &c))
			assert.Equal(t, tt.want, []string(c.Audience))
			assert.Empty(t, c.Permissions)
		})
	}
}

func TestEmptyClaims(t *testing.T) {
	c := EmptyClaims()
	assert.Equal(t, "guest", c.Subject)
	assert.False(t, c.IsMachine())
	assert.NotNil(t, c.MissingPermission(WriteGame))
}
