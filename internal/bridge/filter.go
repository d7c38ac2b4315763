package bridge

import (
	"strings"

	"github.com/google/uuid"
)

// Query filter keys. Filters are key==value pairs joined by ";", e.g.
// "cd_tenant_id==5fe851c0-...;display_name==bob".
const (
	FilterCdTenantID  = "cd_tenant_id"
	FilterCdUserID    = "cd_user_id"
	FilterDisplayName = "display_name"

	filterSeparator = ";"
	filterOperator  = "=="
)

// parseFilter extracts key==value pairs. Malformed fragments are dropped;
// callers treat a filter missing its required key as an empty result.
func parseFilter(s string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(s, filterSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, filterOperator, 2)
		if len(kv) != 2 || kv[0] == "" {
			continue
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
