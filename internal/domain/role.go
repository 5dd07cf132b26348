package domain

import "strings"

// LinkRole enumerates the closed set of labeled-link roles found on a listing page.
type LinkRole int

const (
	RoleOther LinkRole = iota
	RoleAdvertisement
	RoleNotification
	RoleOfficialWebsite
	RoleApplyOnline
)

// RoleOrder is the fixed processing order for links, message lines and attachment tie-breaks.
var RoleOrder = []LinkRole{
	RoleAdvertisement,
	RoleNotification,
	RoleOfficialWebsite,
	RoleApplyOnline,
	RoleOther,
}

var roleKeywords = []struct {
	keyword string
	role    LinkRole
}{
	{"Job Advertisement", RoleAdvertisement},
	{"Job Notification", RoleNotification},
	{"Official website", RoleOfficialWebsite},
	{"Apply Online", RoleApplyOnline},
}

// String returns the label used in logs and messages.
func (r LinkRole) String() string {
	switch r {
	case RoleAdvertisement:
		return "Job Advertisement"
	case RoleNotification:
		return "Job Notification"
	case RoleOfficialWebsite:
		return "Official Website"
	case RoleApplyOnline:
		return "Apply Online"
	default:
		return "Other"
	}
}

// ClassifyLabel maps raw label text to a role. Labels that do not contain one of the
// four known phrases are rejected; matching is case-sensitive.
func ClassifyLabel(label string) (LinkRole, bool) {
	label = CleanLabel(label)
	if label == "" {
		return RoleOther, false
	}
	for _, kw := range roleKeywords {
		if strings.Contains(label, kw.keyword) {
			return kw.role, true
		}
	}
	return RoleOther, false
}

// CleanLabel trims whitespace and the trailing colon that page labels carry.
func CleanLabel(label string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(label), ":"))
}
