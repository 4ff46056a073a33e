package api

import (
	"context"
	"strconv"

	"github.com/kbukum/querykit/httpclient/rest"
)

// Post is a post record. UserID may reference a user that does not exist.
type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// CreatePostRequest is the payload for creating a post.
type CreatePostRequest struct {
	UserID int    `json:"userId" validate:"required,gt=0"`
	Title  string `json:"title" validate:"required,max=200"`
	Body   string `json:"body" validate:"required"`
}

// UpdatePostRequest is the payload for replacing a post.
type UpdatePostRequest struct {
	ID     int    `json:"id" validate:"required,gt=0"`
	UserID int    `json:"userId" validate:"required,gt=0"`
	Title  string `json:"title" validate:"required,max=200"`
	Body   string `json:"body" validate:"required"`
}

// Posts is the client for the /posts resource.
type Posts struct {
	svc *rest.Service
}

// NewPosts creates a posts client on doer.
func NewPosts(doer rest.Doer) *Posts {
	return &Posts{svc: rest.NewService(doer, "/posts")}
}

// List returns all posts.
func (c *Posts) List(ctx context.Context) ([]Post, error) {
	return rest.Get[[]Post](ctx, c.svc, "", nil)
}

// Get returns one post. A missing post is a 404 error.
func (c *Posts) Get(ctx context.Context, id int) (Post, error) {
	return rest.Get[Post](ctx, c.svc, idPath(id), nil)
}

// ListByUser returns the posts written by userID.
func (c *Posts) ListByUser(ctx context.Context, userID int) ([]Post, error) {
	return rest.Get[[]Post](ctx, c.svc, "", map[string]string{"userId": strconv.Itoa(userID)})
}

// Create creates a post and returns the stored record.
func (c *Posts) Create(ctx context.Context, in CreatePostRequest) (Post, error) {
	return rest.Post[Post](ctx, c.svc, "", in)
}

// Update replaces a post and returns the stored record.
func (c *Posts) Update(ctx context.Context, id int, in UpdatePostRequest) (Post, error) {
	return rest.Put[Post](ctx, c.svc, idPath(id), in)
}

// Delete deletes a post.
func (c *Posts) Delete(ctx context.Context, id int) error {
	return rest.Delete(ctx, c.svc, idPath(id))
}
