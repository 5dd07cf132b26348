package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label string
		role  LinkRole
		ok    bool
	}{
		{"Job Advertisement:", RoleAdvertisement, true},
		{"  Job Notification : ", RoleNotification, true},
		{"Official website", RoleOfficialWebsite, true},
		{"Apply Online:", RoleApplyOnline, true},
		{"Download Job Notification (Corrigendum)", RoleNotification, true},
		{"Job Notification / Official website:", RoleNotification, true},
		{"Apply Online & Job Notification:", RoleNotification, true},
		{"Job Advertisement & Job Notification", RoleAdvertisement, true},
		{"Official website / Apply Online", RoleOfficialWebsite, true},
		{"Official Website", RoleOther, false},
		{"apply online", RoleOther, false},
		{"Syllabus", RoleOther, false},
		{"", RoleOther, false},
	}

	for _, tc := range cases {
		role, ok := ClassifyLabel(tc.label)
		assert.Equal(t, tc.ok, ok, "label %q", tc.label)
		assert.Equal(t, tc.role, role, "label %q", tc.label)
	}
}

func TestOrderedLinksFollowsRoleOrder(t *testing.T) {
	t.Parallel()

	listing := Listing{
		SourceURL: "https://example.org/job",
		Links: map[LinkRole]string{
			RoleApplyOnline:     "https://apply.example.org",
			RoleNotification:    "https://example.org/n.pdf",
			RoleAdvertisement:   "https://example.org/ad.pdf",
			RoleOfficialWebsite: "",
		},
	}

	links := listing.OrderedLinks()
	if assert.Len(t, links, 3) {
		assert.Equal(t, RoleAdvertisement, links[0].Role)
		assert.Equal(t, RoleNotification, links[1].Role)
		assert.Equal(t, RoleApplyOnline, links[2].Role)
	}
}
