package query

import "testing"

func TestKey_String(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{"users"}, `["users"]`},
		{Key{"users", "detail", 1}, `["users","detail",1]`},
		{Key{"users", "detail", 1.0}, `["users","detail",1]`},
		{Key{"posts", "list", map[string]any{"b": 2, "a": 1}}, `["posts","list",{"a":1,"b":2}]`},
		{Key{}, `[]`},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("%v.String() = %s, want %s", []any(tt.key), got, tt.want)
		}
	}
}

func TestKey_HasPrefix(t *testing.T) {
	detail := Key{"users", "detail", 1}
	tests := []struct {
		name   string
		prefix Key
		want   bool
	}{
		{"empty matches all", nil, true},
		{"group", Key{"users"}, true},
		{"sub group", Key{"users", "detail"}, true},
		{"exact", Key{"users", "detail", 1}, true},
		{"numeric equivalence", Key{"users", "detail", 1.0}, true},
		{"other group", Key{"posts"}, false},
		{"other id", Key{"users", "detail", 2}, false},
		{"string id differs from number", Key{"users", "detail", "1"}, false},
		{"longer than key", Key{"users", "detail", 1, "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detail.HasPrefix(tt.prefix); got != tt.want {
				t.Errorf("HasPrefix(%s) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestKey_AppendDoesNotAlias(t *testing.T) {
	base := make(Key, 1, 4)
	base[0] = "posts"
	a := base.Append("list")
	b := base.Append("detail")
	if a.String() != `["posts","list"]` || b.String() != `["posts","detail"]` {
		t.Errorf("Append aliased: %s %s", a, b)
	}
	if !a.Equal(Key{"posts", "list"}) || a.Equal(b) {
		t.Error("Equal misreported")
	}
}
