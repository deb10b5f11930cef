package roblox

import "github.com/kapu/roblox-profile-go/internal/constants"

// Endpoints holds the base URLs of the Roblox web APIs.
type Endpoints struct {
	Users      string
	Friends    string
	Groups     string
	Badges     string
	Thumbnails string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Users:      constants.APIConfig.UsersBaseURL,
		Friends:    constants.APIConfig.FriendsBaseURL,
		Groups:     constants.APIConfig.GroupsBaseURL,
		Badges:     constants.APIConfig.BadgesBaseURL,
		Thumbnails: constants.APIConfig.ThumbnailsBaseURL,
	}
}

// SingleBase points every API at one base URL, as a test server does.
func SingleBase(base string) Endpoints {
	return Endpoints{
		Users:      base + "/users",
		Friends:    base + "/friends",
		Groups:     base + "/groups",
		Badges:     base + "/badges",
		Thumbnails: base + "/thumbnails",
	}
}

type usernamesRequest struct {
	Usernames          []string `json:"usernames"`
	ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
}

type usernamesResponse struct {
	Data []struct {
		ID                int64  `json:"id"`
		Name              string `json:"name"`
		DisplayName       string `json:"displayName"`
		RequestedUsername string `json:"requestedUsername"`
	} `json:"data"`
}

type thumbnailsResponse struct {
	Data []struct {
		TargetID int64  `json:"targetId"`
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}
