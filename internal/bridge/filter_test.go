package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFilter(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"single", "cd_tenant_id==abc", map[string]string{"cd_tenant_id": "abc"}},
		{
			"pair",
			"cd_tenant_id==" + extTenantID + ";display_name==bob",
			map[string]string{"cd_tenant_id": extTenantID, "display_name": "bob"},
		},
		{"value with equals", "display_name==a==b", map[string]string{"display_name": "a==b"}},
		{"malformed fragment dropped", "nonsense;display_name==bob", map[string]string{"display_name": "bob"}},
		{"whitespace trimmed", " display_name == bob ", map[string]string{"display_name": "bob"}},
		{"empty key dropped", "==bob", map[string]string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseFilter(tc.in))
		})
	}
}

func TestIsUUID(t *testing.T) {
	assert.True(t, isUUID(extTenantID))
	assert.False(t, isUUID("T1"))
	assert.False(t, isUUID("bob"))
}
