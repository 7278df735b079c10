package instagram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// ProfileInfoEndpoint returns a user's id and latest timeline media
	ProfileInfoEndpoint = "/api/v1/users/web_profile_info/"

	// GraphQLEndpoint serves the follow lists
	GraphQLEndpoint = "/graphql/query/"

	// FollowingQueryHash selects edge_follow
	FollowingQueryHash = "d04b0a864b4b54837c0d870b0e77e076"

	// FollowersQueryHash selects edge_followed_by
	FollowersQueryHash = "c76146de99bb02f6415203be841dd25a"

	// AppID is sent as X-IG-App-ID on profile info requests
	AppID = "936619743392459"

	// DefaultPageSize is the number of users requested per page
	DefaultPageSize = 50
)

// Paths on instagram.com that are not profiles
var reservedPaths = map[string]bool{
	"explore":  true,
	"reels":    true,
	"reel":     true,
	"direct":   true,
	"accounts": true,
	"p":        true,
	"stories":  true,
	"tv":       true,
}

// GetProfileInfoURL constructs the profile info URL for username
func GetProfileInfoURL(baseURL, username string) string {
	params := url.Values{}
	params.Set("username", username)
	return fmt.Sprintf("%s%s?%s", baseURL, ProfileInfoEndpoint, params.Encode())
}

// GetFollowListURL constructs a GraphQL follow list URL for one page
func GetFollowListURL(baseURL, queryHash, userID, after string, first int) string {
	if first <= 0 || first > DefaultPageSize {
		first = DefaultPageSize
	}

	variables := map[string]interface{}{
		"id":    userID,
		"first": first,
	}
	if after != "" {
		variables["after"] = after
	}
	encoded, _ := json.Marshal(variables)

	params := url.Values{}
	params.Set("query_hash", queryHash)
	params.Set("variables", string(encoded))
	return fmt.Sprintf("%s%s?%s", baseURL, GraphQLEndpoint, params.Encode())
}

// GetUserProfileURL constructs the public profile URL for a user
func GetUserProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", BaseURL, username)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	return strings.TrimRight(username, "/ ")
}
