// Package content is the blog-post repository over the site API. Each operation is
// one remote call; nothing is retried.
package content

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/existflow/blogdesk/internal/api"
	"github.com/existflow/blogdesk/internal/model"
)

const resourceBlog = "blog"

// Repository performs blog CRUD against the API
type Repository struct {
	api *api.Client
}

// NewRepository creates a Repository
func NewRepository(c *api.Client) *Repository {
	return &Repository{api: c}
}

type listResponse struct {
	Blogs []model.BlogPost `json:"blogs"`
}

type postResponse struct {
	Blog *model.BlogPost `json:"blog"`
}

// List returns every post in the order the server sends them (newest first)
func (r *Repository) List(ctx context.Context) ([]model.BlogPost, error) {
	var resp listResponse
	err := r.api.Do(ctx, api.Request{
		Method:   http.MethodGet,
		Path:     "/blog/get-all-blogs",
		Resource: resourceBlog,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("content.List: %w", err)
	}
	if resp.Blogs == nil {
		resp.Blogs = []model.BlogPost{}
	}
	return resp.Blogs, nil
}

// Get returns one post. An unknown id yields *api.NotFoundError.
func (r *Repository) Get(ctx context.Context, id string) (*model.BlogPost, error) {
	if strings.TrimSpace(id) == "" {
		return nil, api.Missing("id")
	}

	var resp postResponse
	err := r.api.Do(ctx, api.Request{
		Method:   http.MethodGet,
		Path:     "/blog/" + url.PathEscape(id),
		Resource: resourceBlog,
		ID:       id,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("content.Get: %w", err)
	}
	if resp.Blog == nil {
		return nil, fmt.Errorf("content.Get: %w", &api.NotFoundError{Resource: resourceBlog, ID: id})
	}
	return resp.Blog, nil
}

// Create uploads a new post. Title, content and image are all required and are
// checked before any network call.
func (r *Repository) Create(ctx context.Context, title, content string, image *model.ImageUpload) (*model.BlogPost, error) {
	if err := validate(title, content); err != nil {
		return nil, err
	}
	if image == nil || len(image.Data) == 0 {
		return nil, api.Missing("image")
	}

	var resp postResponse
	err := r.api.Do(ctx, api.Request{
		Method:       http.MethodPost,
		Path:         "/blog/add-blog",
		Form:         postForm(title, content, image),
		Credentialed: true,
		Resource:     resourceBlog,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("content.Create: %w", err)
	}
	return echoed(resp, "", title, content), nil
}

// Update replaces title and content of a post. A nil image keeps the post's current photos.
func (r *Repository) Update(ctx context.Context, id, title, content string, image *model.ImageUpload) (*model.BlogPost, error) {
	if strings.TrimSpace(id) == "" {
		return nil, api.Missing("id")
	}
	if err := validate(title, content); err != nil {
		return nil, err
	}
	if image != nil && len(image.Data) == 0 {
		image = nil
	}

	var resp postResponse
	err := r.api.Do(ctx, api.Request{
		Method:       http.MethodPut,
		Path:         "/blog/" + url.PathEscape(id),
		Form:         postForm(title, content, image),
		Credentialed: true,
		Resource:     resourceBlog,
		ID:           id,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("content.Update: %w", err)
	}
	return echoed(resp, id, title, content), nil
}

// Delete removes a post on the server. Callers drop it from any cached list.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return api.Missing("id")
	}

	err := r.api.Do(ctx, api.Request{
		Method:       http.MethodDelete,
		Path:         "/blog/" + url.PathEscape(id),
		Credentialed: true,
		Resource:     resourceBlog,
		ID:           id,
	}, nil)
	if err != nil {
		return fmt.Errorf("content.Delete: %w", err)
	}
	return nil
}

func validate(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return api.Missing("title")
	}
	if strings.TrimSpace(content) == "" {
		return api.Missing("content")
	}
	return nil
}

func postForm(title, content string, image *model.ImageUpload) *api.Form {
	form := &api.Form{}
	form.Add("title", title)
	form.Add("content", content)
	if image != nil {
		form.AddFile("photos", image.Filename, image.Data)
	}
	return form
}

// echoed returns the server's copy of the post, or one built from what was sent
// when the server only acknowledged the write
func echoed(resp postResponse, id, title, content string) *model.BlogPost {
	if resp.Blog != nil {
		return resp.Blog
	}
	return &model.BlogPost{ID: id, Title: title, Content: content}
}
