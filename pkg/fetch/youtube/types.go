package youtube

import (
	"strconv"
	"time"
)

// Wire types for the subset of the Data API v3 this client consumes.
// Statistics counts arrive as decimal strings.

type channelListResponse struct {
	Items []channelResource `json:"items"`
}

type channelResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		CustomURL   string    `json:"customUrl"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount       string `json:"viewCount"`
		SubscriberCount string `json:"subscriberCount"`
		VideoCount      string `json:"videoCount"`
	} `json:"statistics"`
	ContentDetails struct {
		RelatedPlaylists struct {
			Uploads string `json:"uploads"`
		} `json:"relatedPlaylists"`
	} `json:"contentDetails"`
}

func (r channelResource) toChannel() *Channel {
	return &Channel{
		ID:                r.ID,
		Title:             r.Snippet.Title,
		Description:       r.Snippet.Description,
		CustomURL:         r.Snippet.CustomURL,
		UploadsPlaylistID: r.ContentDetails.RelatedPlaylists.Uploads,
		Subscribers:       parseCount(r.Statistics.SubscriberCount),
		Views:             parseCount(r.Statistics.ViewCount),
		VideoCount:        parseCount(r.Statistics.VideoCount),
		PublishedAt:       r.Snippet.PublishedAt,
	}
}

type searchListResponse struct {
	Items []struct {
		ID struct {
			ChannelID string `json:"channelId"`
		} `json:"id"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []videoResource `json:"items"`
}

type videoResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

func (r videoResource) toVideo() Video {
	return Video{
		ID:          r.ID,
		Title:       r.Snippet.Title,
		Description: r.Snippet.Description,
		PublishedAt: r.Snippet.PublishedAt,
		Duration:    r.ContentDetails.Duration,
		Views:       parseCount(r.Statistics.ViewCount),
		Likes:       parseCount(r.Statistics.LikeCount),
		Comments:    parseCount(r.Statistics.CommentCount),
	}
}

// parseCount converts a decimal string count, returning 0 for absent or
// hidden counts.
func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
