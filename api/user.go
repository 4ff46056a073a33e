package api

import (
	"context"
	"strconv"

	"github.com/kbukum/querykit/httpclient/rest"
)

// User is a user record as served by the resource server.
type User struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Website  string  `json:"website"`
	Address  Address `json:"address"`
	Company  Company `json:"company"`
}

// Address is a postal address.
type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Geo     Geo    `json:"geo"`
}

// Geo is a coordinate pair kept as strings, as served.
type Geo struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// Company is the user's employer.
type Company struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catchPhrase"`
	BS          string `json:"bs"`
}

// CreateUserRequest is the payload for creating a user.
type CreateUserRequest struct {
	Name     string   `json:"name" validate:"required,min=2,max=100"`
	Username string   `json:"username" validate:"required,min=2,max=50"`
	Email    string   `json:"email" validate:"required,email"`
	Phone    string   `json:"phone,omitempty" validate:"omitempty,max=40"`
	Website  string   `json:"website,omitempty" validate:"omitempty,max=200"`
	Address  *Address `json:"address,omitempty"`
	Company  *Company `json:"company,omitempty"`
}

// UserInput is a partial user for updates. Zero fields are left out.
type UserInput struct {
	Name     string   `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Username string   `json:"username,omitempty" validate:"omitempty,min=2,max=50"`
	Email    string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string   `json:"phone,omitempty" validate:"omitempty,max=40"`
	Website  string   `json:"website,omitempty" validate:"omitempty,max=200"`
	Address  *Address `json:"address,omitempty"`
	Company  *Company `json:"company,omitempty"`
}

// Apply returns u with the non-zero fields of in merged over it.
func (in UserInput) Apply(u User) User {
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Username != "" {
		u.Username = in.Username
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	if in.Phone != "" {
		u.Phone = in.Phone
	}
	if in.Website != "" {
		u.Website = in.Website
	}
	if in.Address != nil {
		u.Address = *in.Address
	}
	if in.Company != nil {
		u.Company = *in.Company
	}
	return u
}

// Users is the client for the /users resource.
type Users struct {
	svc *rest.Service
}

// NewUsers creates a users client on doer.
func NewUsers(doer rest.Doer) *Users {
	return &Users{svc: rest.NewService(doer, "/users")}
}

// List returns all users.
func (c *Users) List(ctx context.Context) ([]User, error) {
	return rest.Get[[]User](ctx, c.svc, "", nil)
}

// Get returns one user. A missing user is a 404 error.
func (c *Users) Get(ctx context.Context, id int) (User, error) {
	return rest.Get[User](ctx, c.svc, idPath(id), nil)
}

// Create creates a user and returns the stored record.
func (c *Users) Create(ctx context.Context, in CreateUserRequest) (User, error) {
	return rest.Post[User](ctx, c.svc, "", in)
}

// Update replaces the given fields of a user and returns the stored record.
func (c *Users) Update(ctx context.Context, id int, in UserInput) (User, error) {
	return rest.Put[User](ctx, c.svc, idPath(id), in)
}

// Delete deletes a user.
func (c *Users) Delete(ctx context.Context, id int) error {
	return rest.Delete(ctx, c.svc, idPath(id))
}

func idPath(id int) string { return "/" + strconv.Itoa(id) }
