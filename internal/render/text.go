package render

import (
	"fmt"
	"strings"

	"github.com/kapu/roblox-profile-go/internal/domain"
)

// Text renders a state as plain text for terminals and logs.
func Text(state domain.DisplayState) string {
	switch s := state.(type) {
	case domain.Loading:
		return fmt.Sprintf("Looking up %q...", s.Query)
	case domain.ShowingError:
		return s.Message
	case domain.ShowingResults:
		if err := s.Result.Validate(); err != nil {
			return ""
		}
		return ProfileText(NewProfileView(s.Result))
	default:
		return ""
	}
}

// ProfileText formats a profile view in the same order as the HTML card.
func ProfileText(v ProfileView) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s\n", v.DisplayName))
	sb.WriteString(fmt.Sprintf("@%s\n", v.Name))
	sb.WriteString(fmt.Sprintf("User ID: %d\n", v.ID))
	if v.AvatarURL != "" {
		sb.WriteString(fmt.Sprintf("Avatar: %s\n", v.AvatarURL))
	}
	sb.WriteString(fmt.Sprintf("%s\n\n", v.Description))

	sb.WriteString(fmt.Sprintf("Friends %d | Followers %d | Following %d\n\n", v.Friends, v.Followers, v.Following))

	sb.WriteString(fmt.Sprintf("Groups (%d)\n", v.GroupCount))
	for _, g := range v.Groups {
		sb.WriteString(fmt.Sprintf("  - %s (%s)\n", g.Group.Name, g.Role.Name))
	}

	sb.WriteString(fmt.Sprintf("\nBadges (%d)\n", v.BadgeCount))
	for _, b := range v.Badges {
		sb.WriteString(fmt.Sprintf("  - %s (%s)\n", b.Name, b.Created))
	}

	return strings.TrimRight(sb.String(), "\n")
}
