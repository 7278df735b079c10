package instagram

// ProfileInfoResponse is the subset of web_profile_info used by the driver
type ProfileInfoResponse struct {
	Data struct {
		User *ProfileUser `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// ProfileUser is the user object of a profile info response
type ProfileUser struct {
	ID                       string        `json:"id"`
	Username                 string        `json:"username"`
	EdgeOwnerToTimelineMedia TimelineMedia `json:"edge_owner_to_timeline_media"`
}

// TimelineMedia lists a user's newest posts first
type TimelineMedia struct {
	Count int `json:"count"`
	Edges []struct {
		Node struct {
			ID               string `json:"id"`
			TakenAtTimestamp int64  `json:"taken_at_timestamp"`
		} `json:"node"`
	} `json:"edges"`
}

// FollowListResponse is a page of edge_follow or edge_followed_by
type FollowListResponse struct {
	Data struct {
		User struct {
			EdgeFollow     *UserEdge `json:"edge_follow"`
			EdgeFollowedBy *UserEdge `json:"edge_followed_by"`
		} `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// UserEdge is one page of a follow list
type UserEdge struct {
	Count    int      `json:"count"`
	PageInfo PageInfo `json:"page_info"`
	Edges    []struct {
		Node UserNode `json:"node"`
	} `json:"edges"`
}

// PageInfo carries the pagination cursor
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// UserNode is a user in a follow list
type UserNode struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	ProfilePicURL string `json:"profile_pic_url"`
}
