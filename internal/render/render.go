// Package render turns a DisplayState into what a surface shows. Every
// function here is pure: the same state always yields the same output.
package render

import (
	"fmt"
	"html/template"
	"io"

	"github.com/kapu/roblox-profile-go/internal/constants"
	"github.com/kapu/roblox-profile-go/internal/domain"
)

// Presentation is the content and visibility of the two display regions.
// At most one region is visible.
type Presentation struct {
	State         domain.StateKind `json:"state"`
	ResultsHidden bool             `json:"resultsHidden"`
	ErrorHidden   bool             `json:"errorHidden"`
	ResultsHTML   template.HTML    `json:"resultsHtml"`
	ErrorText     string           `json:"errorText"`
}

// ProfileView is the template model of a rendered profile. Groups and Badges
// hold the displayed slice; the counts are the full collection lengths.
type ProfileView struct {
	AvatarURL   string
	DisplayName string
	Name        string
	ID          int64
	Description string
	Friends     int64
	Followers   int64
	Following   int64
	GroupCount  int
	Groups      []domain.GroupMembership
	BadgeCount  int
	Badges      []domain.Badge
}

// NewProfileView builds the view model for result. The result must have
// passed Validate.
func NewProfileView(result *domain.ProfileResult) ProfileView {
	description := result.User.Description
	if description == "" {
		description = constants.Messages.NoDescription
	}

	limit := constants.DisplayLimits.MaxListEntries
	return ProfileView{
		AvatarURL:   result.AvatarURL(),
		DisplayName: result.User.DisplayName,
		Name:        result.User.Name,
		ID:          result.User.ID,
		Description: description,
		Friends:     result.Friends.Count,
		Followers:   result.Followers.Count,
		Following:   result.Following.Count,
		GroupCount:  result.Groups.Len(),
		Groups:      result.Groups.Head(limit),
		BadgeCount:  result.Badges.Len(),
		Badges:      result.Badges.Head(limit),
	}
}

// Present maps a display state onto the two regions.
func Present(state domain.DisplayState) (Presentation, error) {
	p := Presentation{
		ResultsHidden: true,
		ErrorHidden:   true,
	}
	if state == nil {
		state = domain.Idle{}
	}
	p.State = state.Kind()

	switch s := state.(type) {
	case domain.Idle, domain.Loading:
		return p, nil
	case domain.ShowingError:
		p.ErrorHidden = false
		p.ErrorText = s.Message
		return p, nil
	case domain.ShowingResults:
		if err := s.Result.Validate(); err != nil {
			return Presentation{}, fmt.Errorf("render results: %w", err)
		}
		html, err := Results(s.Result)
		if err != nil {
			return Presentation{}, err
		}
		p.ResultsHidden = false
		p.ResultsHTML = html
		return p, nil
	default:
		return Presentation{}, fmt.Errorf("unknown display state %T", state)
	}
}

// Results renders the profile card, groups and badges markup.
func Results(result *domain.ProfileResult) (template.HTML, error) {
	out, err := executeTemplateString("results", NewProfileView(result))
	if err != nil {
		return "", fmt.Errorf("render results: %w", err)
	}
	// Output of html/template is already escaped.
	return template.HTML(out), nil
}

// PageData feeds the full page template.
type PageData struct {
	Query string
	View  Presentation
}

// Page writes the whole HTML document with both regions in place.
func Page(w io.Writer, query string, view Presentation) error {
	return executeTemplate(w, "page", PageData{Query: query, View: view})
}
