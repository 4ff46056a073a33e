package resources

import (
	"context"

	"github.com/kbukum/querykit/api"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/query"
	"github.com/kbukum/querykit/validation"
)

// UserUpdate is the input of an update mutation.
type UserUpdate struct {
	ID    int
	Input api.UserInput
}

// Users serves the users resource through the cache.
type Users struct {
	qc  *query.Client
	api *api.Users
	log *logger.Logger
}

// NewUsers creates the users resource.
func NewUsers(qc *query.Client, client *api.Users, log *logger.Logger) *Users {
	return &Users{qc: qc, api: client, log: logger.OrGlobal(log).WithComponent("resources.users")}
}

// List returns every user.
func (r *Users) List(ctx context.Context) ([]api.User, error) {
	return query.Fetch(ctx, r.qc, UserKeys.Lists(), r.api.List)
}

// Get returns one user. An id <= 0 disables the query: the zero User is
// returned and nothing is fetched.
func (r *Users) Get(ctx context.Context, id int) (api.User, error) {
	return query.Fetch(ctx, r.qc, UserKeys.Detail(id), func(ctx context.Context) (api.User, error) {
		return r.api.Get(ctx, id)
	}, query.WithEnabled(id > 0))
}

// Watch observes one user's cache entry.
func (r *Users) Watch(id int) *query.Observer {
	return r.qc.Watch(UserKeys.Detail(id))
}

// Create creates a user, seeds its detail entry and invalidates the lists.
func (r *Users) Create(ctx context.Context, in api.CreateUserRequest) query.Result[api.User] {
	return query.Mutate(ctx, r.qc, query.Mutation[api.CreateUserRequest, api.User]{
		Name:     "users.create",
		OnMutate: validate[api.CreateUserRequest],
		Fn:       r.api.Create,
		OnSuccess: func(tx *query.Tx, u api.User, _ api.CreateUserRequest) {
			tx.Invalidate(UserKeys.Lists())
			tx.Set(UserKeys.Detail(u.ID), u)
		},
		Hooks: query.Hooks[api.CreateUserRequest, api.User]{
			OnSuccess: func(u api.User, _ api.CreateUserRequest) {
				r.log.Info("user created", logger.Fields("id", u.ID))
			},
			OnError: func(err error, _ api.CreateUserRequest) {
				r.log.Error("failed to create user", logger.ErrorFields("users.create", err))
			},
		},
	}, in)
}

// Update updates a user, writes the returned record to its detail entry and
// invalidates the lists.
func (r *Users) Update(ctx context.Context, id int, in api.UserInput) query.Result[api.User] {
	return query.Mutate(ctx, r.qc, query.Mutation[UserUpdate, api.User]{
		Name:     "users.update",
		OnMutate: validateUpdate,
		Fn:       r.update,
		OnSuccess: func(tx *query.Tx, u api.User, vars UserUpdate) {
			tx.Set(UserKeys.Detail(vars.ID), u)
			tx.Invalidate(UserKeys.Lists())
		},
		Hooks: r.updateHooks("users.update"),
	}, UserUpdate{ID: id, Input: in})
}

// UpdateOptimistic merges the input into the cached user before the request
// is sent. A failed request restores the previous record. The detail entry
// is invalidated once the mutation settles either way.
func (r *Users) UpdateOptimistic(ctx context.Context, id int, in api.UserInput) query.Result[api.User] {
	return query.Mutate(ctx, r.qc, query.Mutation[UserUpdate, api.User]{
		Name: "users.update_optimistic",
		OnMutate: func(tx *query.Tx, vars UserUpdate) error {
			if err := validateUpdate(tx, vars); err != nil {
				return err
			}
			tx.Update(UserKeys.Detail(vars.ID), func(old any, ok bool) any {
				base, _ := old.(api.User)
				if !ok {
					base = api.User{ID: vars.ID}
				}
				return vars.Input.Apply(base)
			})
			return nil
		},
		Fn: r.update,
		OnSettled: func(tx *query.Tx, _ api.User, _ error, vars UserUpdate) {
			tx.Invalidate(UserKeys.Detail(vars.ID))
		},
		Hooks: r.updateHooks("users.update_optimistic"),
	}, UserUpdate{ID: id, Input: in})
}

// Delete deletes a user, drops its detail entry and invalidates the lists.
func (r *Users) Delete(ctx context.Context, id int) query.Result[struct{}] {
	return query.Mutate(ctx, r.qc, query.Mutation[int, struct{}]{
		Name: "users.delete",
		Fn: func(ctx context.Context, id int) (struct{}, error) {
			return struct{}{}, r.api.Delete(ctx, id)
		},
		OnSuccess: func(tx *query.Tx, _ struct{}, id int) {
			tx.Remove(UserKeys.Detail(id))
			tx.Invalidate(UserKeys.Lists())
		},
		Hooks: query.Hooks[int, struct{}]{
			OnError: func(err error, _ int) {
				r.log.Error("failed to delete user", logger.ErrorFields("users.delete", err))
			},
		},
	}, id)
}

func (r *Users) update(ctx context.Context, vars UserUpdate) (api.User, error) {
	return r.api.Update(ctx, vars.ID, vars.Input)
}

func (r *Users) updateHooks(op string) query.Hooks[UserUpdate, api.User] {
	return query.Hooks[UserUpdate, api.User]{
		OnError: func(err error, vars UserUpdate) {
			r.log.Error("failed to update user", logger.Fields(
				logger.FieldOperation, op,
				"id", vars.ID,
				logger.FieldError, err.Error(),
			))
		},
	}
}

func validateUpdate(_ *query.Tx, vars UserUpdate) error {
	return validation.Validate(vars.Input)
}

// validate is an OnMutate step that rejects invalid payloads before any
// request is sent.
func validate[V any](_ *query.Tx, vars V) error {
	return validation.Validate(vars)
}
