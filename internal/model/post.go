package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Image is a stored photo attached to a blog post
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
}

// BlogPost is a post as owned by the remote API. The client only caches it for display.
type BlogPost struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Photos    []Image   `json:"photos"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Cover returns the URL of the first photo, or "" when the post has none
func (p BlogPost) Cover() string {
	if len(p.Photos) == 0 {
		return ""
	}
	return p.Photos[0].URL
}

// Excerpt returns the first n runes of the content, trimmed, with an ellipsis when cut
func (p BlogPost) Excerpt(n int) string {
	content := strings.TrimSpace(p.Content)
	runes := []rune(content)
	if n <= 0 || len(runes) <= n {
		return content
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

// MatchesTitle reports whether the title contains term, ignoring case.
// An empty term matches every post.
func (p BlogPost) MatchesTitle(term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), strings.ToLower(term))
}

// Related returns up to n posts from posts other than the one with id, in order
func Related(posts []BlogPost, id string, n int) []BlogPost {
	related := make([]BlogPost, 0, n)
	for _, p := range posts {
		if len(related) >= n {
			break
		}
		if p.ID == id {
			continue
		}
		related = append(related, p)
	}
	return related
}

// ImageUpload is a local image to be sent as the photos multipart field
type ImageUpload struct {
	Filename string
	Data     []byte
}

// LoadImage reads an image file from disk
func LoadImage(path string) (*ImageUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", path)
	}
	return &ImageUpload{Filename: filepath.Base(path), Data: data}, nil
}
