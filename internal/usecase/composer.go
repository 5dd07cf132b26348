package usecase

import (
	"fmt"
	"strings"

	"JobsScanner/internal/domain"
)

const messageFooter = "\n🚀 આવી જ તમામ જોબ અપડેટ રેગ્યુલર કોઇ પણ એડ વગર જોવા માટે અમારા ચેનલમાં જોડાઇ જાવ ! 🚀\n👉 https://t.me/currentadda 👈"

var roleGlyphs = map[domain.LinkRole]string{
	domain.RoleAdvertisement:   "📝",
	domain.RoleNotification:    "📄",
	domain.RoleOfficialWebsite: "🌐",
	domain.RoleApplyOnline:     "🖥️",
}

// Compose renders the notification for one listing. Links are rendered in role order,
// preferring the shortened form when one exists.
func Compose(title string, links []domain.LabeledLink, short map[domain.LinkRole]string, attachments map[domain.LinkRole]domain.Attachment) domain.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "📢 %s 📢\n\n", title)

	for _, link := range orderLinks(links) {
		href := link.URL
		if s, ok := short[link.Role]; ok && s != "" {
			href = s
		}
		glyph, ok := roleGlyphs[link.Role]
		if !ok {
			glyph = "🔗"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", glyph, link.Role, href)
	}
	b.WriteString(messageFooter)

	msg := domain.Message{Text: b.String()}
	if att, ok := SelectAttachment(attachments); ok {
		msg.AttachmentPath = att.LocalPath
	}
	return msg
}

// SelectAttachment picks the single attachment a message carries: the notification
// document when present, otherwise the first available in role order.
func SelectAttachment(attachments map[domain.LinkRole]domain.Attachment) (domain.Attachment, bool) {
	if att, ok := attachments[domain.RoleNotification]; ok && att.LocalPath != "" {
		return att, true
	}
	for _, role := range domain.RoleOrder {
		if att, ok := attachments[role]; ok && att.LocalPath != "" {
			return att, true
		}
	}
	return domain.Attachment{}, false
}

func orderLinks(links []domain.LabeledLink) []domain.LabeledLink {
	byRole := make(map[domain.LinkRole]domain.LabeledLink, len(links))
	for _, link := range links {
		if _, seen := byRole[link.Role]; !seen {
			byRole[link.Role] = link
		}
	}
	ordered := make([]domain.LabeledLink, 0, len(byRole))
	for _, role := range domain.RoleOrder {
		if link, ok := byRole[role]; ok {
			ordered = append(ordered, link)
		}
	}
	return ordered
}
