package resources

import (
	"context"

	"github.com/kbukum/querykit/api"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/query"
)

// PostUpdate is the input of an update mutation.
type PostUpdate struct {
	ID    int
	Input api.UpdatePostRequest
}

// contextPost is the MutationContext value holding the post seen before a
// delete.
const contextPost = "post"

// Posts serves the posts resource through the cache.
type Posts struct {
	qc  *query.Client
	api *api.Posts
	log *logger.Logger
}

// NewPosts creates the posts resource.
func NewPosts(qc *query.Client, client *api.Posts, log *logger.Logger) *Posts {
	return &Posts{qc: qc, api: client, log: logger.OrGlobal(log).WithComponent("resources.posts")}
}

// List returns every post.
func (r *Posts) List(ctx context.Context) ([]api.Post, error) {
	return query.Fetch(ctx, r.qc, PostKeys.Lists(), r.api.List)
}

// Get returns one post. An id <= 0 disables the query.
func (r *Posts) Get(ctx context.Context, id int) (api.Post, error) {
	return query.Fetch(ctx, r.qc, PostKeys.Detail(id), func(ctx context.Context) (api.Post, error) {
		return r.api.Get(ctx, id)
	}, query.WithEnabled(id > 0))
}

// ByUser returns the posts of one author. A userID <= 0 disables the query.
func (r *Posts) ByUser(ctx context.Context, userID int) ([]api.Post, error) {
	return query.Fetch(ctx, r.qc, PostKeys.ByUser(userID), func(ctx context.Context) ([]api.Post, error) {
		return r.api.ListByUser(ctx, userID)
	}, query.WithEnabled(userID > 0))
}

// Create creates a post, invalidates the lists and the author's posts, and
// seeds the detail entry.
func (r *Posts) Create(ctx context.Context, in api.CreatePostRequest) query.Result[api.Post] {
	return query.Mutate(ctx, r.qc, query.Mutation[api.CreatePostRequest, api.Post]{
		Name:     "posts.create",
		OnMutate: validate[api.CreatePostRequest],
		Fn:       r.api.Create,
		OnSuccess: func(tx *query.Tx, p api.Post, _ api.CreatePostRequest) {
			tx.Invalidate(PostKeys.Lists())
			tx.Invalidate(PostKeys.ByUser(p.UserID))
			tx.Set(PostKeys.Detail(p.ID), p)
		},
		Hooks: query.Hooks[api.CreatePostRequest, api.Post]{
			OnSuccess: func(p api.Post, _ api.CreatePostRequest) {
				r.log.Info("post created", logger.Fields("id", p.ID, "user_id", p.UserID))
			},
			OnError: func(err error, _ api.CreatePostRequest) {
				r.log.Error("failed to create post", logger.ErrorFields("posts.create", err))
			},
		},
	}, in)
}

// Update replaces a post, writes the result to its detail entry and
// invalidates the lists and the author's posts.
func (r *Posts) Update(ctx context.Context, id int, in api.UpdatePostRequest) query.Result[api.Post] {
	return query.Mutate(ctx, r.qc, query.Mutation[PostUpdate, api.Post]{
		Name: "posts.update",
		OnMutate: func(tx *query.Tx, vars PostUpdate) error {
			return validate(tx, vars.Input)
		},
		Fn: func(ctx context.Context, vars PostUpdate) (api.Post, error) {
			return r.api.Update(ctx, vars.ID, vars.Input)
		},
		OnSuccess: func(tx *query.Tx, p api.Post, vars PostUpdate) {
			tx.Set(PostKeys.Detail(vars.ID), p)
			tx.Invalidate(PostKeys.Lists())
			tx.Invalidate(PostKeys.ByUser(p.UserID))
		},
		Hooks: query.Hooks[PostUpdate, api.Post]{
			OnError: func(err error, vars PostUpdate) {
				r.log.Error("failed to update post", logger.Fields(
					logger.FieldOperation, "posts.update",
					"id", vars.ID,
					logger.FieldError, err.Error(),
				))
			},
		},
	}, PostUpdate{ID: id, Input: in})
}

// Delete deletes a post. The cached post is kept in the mutation context so
// its author's posts can be invalidated after the detail entry is dropped.
func (r *Posts) Delete(ctx context.Context, id int) query.Result[struct{}] {
	return query.Mutate(ctx, r.qc, query.Mutation[int, struct{}]{
		Name: "posts.delete",
		OnMutate: func(tx *query.Tx, id int) error {
			if v, ok := tx.Get(PostKeys.Detail(id)); ok {
				if p, ok := v.(api.Post); ok {
					tx.Context().Values[contextPost] = p
				}
			}
			return nil
		},
		Fn: func(ctx context.Context, id int) (struct{}, error) {
			return struct{}{}, r.api.Delete(ctx, id)
		},
		OnSuccess: func(tx *query.Tx, _ struct{}, id int) {
			tx.Remove(PostKeys.Detail(id))
			tx.Invalidate(PostKeys.Lists())
			if p, ok := tx.Context().Values[contextPost].(api.Post); ok {
				tx.Invalidate(PostKeys.ByUser(p.UserID))
			}
		},
		Hooks: query.Hooks[int, struct{}]{
			OnError: func(err error, _ int) {
				r.log.Error("failed to delete post", logger.ErrorFields("posts.delete", err))
			},
		},
	}, id)
}
