package resources

import "github.com/kbukum/querykit/query"

type userKeys struct{}

// UserKeys builds the cache keys of the users resource.
var UserKeys userKeys

func (userKeys) All() query.Key { return query.Key{"users"} }

func (k userKeys) Lists() query.Key { return k.All().Append("list") }

func (k userKeys) List(filters string) query.Key {
	return k.Lists().Append(map[string]string{"filters": filters})
}

func (k userKeys) Details() query.Key { return k.All().Append("detail") }

func (k userKeys) Detail(id int) query.Key { return k.Details().Append(id) }

type postKeys struct{}

// PostKeys builds the cache keys of the posts resource.
var PostKeys postKeys

func (postKeys) All() query.Key { return query.Key{"posts"} }

func (k postKeys) Lists() query.Key { return k.All().Append("list") }

func (k postKeys) List(filters string) query.Key {
	return k.Lists().Append(map[string]string{"filters": filters})
}

func (k postKeys) Details() query.Key { return k.All().Append("detail") }

func (k postKeys) Detail(id int) query.Key { return k.Details().Append(id) }

// ByUser is the key of one author's posts. It sits outside Lists, so list
// invalidations do not reach it.
func (k postKeys) ByUser(userID int) query.Key { return k.All().Append("byUser", userID) }
