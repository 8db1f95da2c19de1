package codec

import (
	"strings"
)

// Admin-role entries are plain one-line messages; the summary embed is a
// cached human-readable projection rebuilt after every write.
const (
	AdminEntryPrefix  = "ADMIN_ROLE:"
	AdminSummaryTitle = "🛡️ Admin Roles"
)

func FormatAdminEntry(roleID string) string {
	return AdminEntryPrefix + roleID
}

// ParseAdminEntry extracts the numeric role id from an entry message.
// Anything malformed is skipped by the caller.
func ParseAdminEntry(content string) (string, bool) {
	if !strings.HasPrefix(content, AdminEntryPrefix) {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimPrefix(content, AdminEntryPrefix))
	if id == "" || !numericRe.MatchString(id) {
		return "", false
	}
	return id, true
}

// AdminSummaryBody renders the summary field value.
func AdminSummaryBody(roleIDs []string) string {
	if len(roleIDs) == 0 {
		return "No admin roles set"
	}
	mentions := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		mentions = append(mentions, RoleMention(id))
	}
	return strings.Join(mentions, "\n")
}
