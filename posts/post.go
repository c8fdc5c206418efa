package posts

import (
	"time"

	"github.com/reoring/postq/cache"
)

// TagType is the cache tag type for posts.
const TagType = "Post"

// Post is a blog post as stored by the backend.
type Post struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Content string     `json:"content,omitempty"`
	Created *time.Time `json:"created,omitempty"`
}

// PostListItem is the list projection of a Post: content is cut to an
// excerpt and created is rendered for display.
type PostListItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Excerpt string `json:"content,omitempty"`
	Created string `json:"created,omitempty"`
}

// Draft is the body of a create request. An empty ID is filled in by the
// client before sending.
type Draft struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name    *string `json:"name,omitempty"`
	Content *string `json:"content,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool { return p.Name == nil && p.Content == nil }

// Apply returns post with the patch fields copied over.
func (p Patch) Apply(post Post) Post {
	if p.Name != nil {
		post.Name = *p.Name
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	return post
}

// DeleteResult is the backend's answer to a delete.
type DeleteResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// PostTag tags the cache entries holding post id.
func PostTag(id string) cache.Tag { return cache.Tag{Type: TagType, ID: id} }

// ListTag tags every cached post collection.
func ListTag() cache.Tag { return cache.Tag{Type: TagType, ID: cache.ListID} }
