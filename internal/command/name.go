package command

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNameEmpty indicates a name was built from zero tokens.
	ErrNameEmpty = errors.New("command name requires at least one token")
	// ErrNameTokenInvalid indicates a blank or whitespace-bearing token.
	ErrNameTokenInvalid = errors.New("command name token must be a single non-empty word")
)

// Name is an immutable hierarchical command identifier.
//
// Tokens are stored lowercased in a canonical space-joined form so that
// equality is structural and Name is usable as a map key. The zero value
// is not a valid name; construct through NewName.
type Name struct {
	path string
}

// NewName builds a Name from ordered tokens. Tokens are trimmed and
// lowercased; blank tokens and tokens containing whitespace are rejected.
func NewName(tokens ...string) (Name, error) {
	if len(tokens) == 0 {
		return Name{}, ErrNameEmpty
	}
	normalized := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" || strings.ContainsAny(token, " \t\n") {
			return Name{}, fmt.Errorf("%w: %q", ErrNameTokenInvalid, token)
		}
		normalized = append(normalized, token)
	}
	return Name{path: strings.Join(normalized, " ")}, nil
}

// MustName builds a Name and panics on invalid tokens. It is intended for
// static declarations in plugin code and tests.
func MustName(tokens ...string) Name {
	name, err := NewName(tokens...)
	if err != nil {
		panic(err)
	}
	return name
}

// IsZero reports whether the name carries no tokens.
func (n Name) IsZero() bool {
	return n.path == ""
}

// Size returns the token count.
func (n Name) Size() int {
	if n.path == "" {
		return 0
	}
	return strings.Count(n.path, " ") + 1
}

// Tokens returns the ordered token sequence.
func (n Name) Tokens() []string {
	if n.path == "" {
		return nil
	}
	return strings.Split(n.path, " ")
}

// HasParent reports whether the name has more than one token.
func (n Name) HasParent() bool {
	return strings.Contains(n.path, " ")
}

// Parent returns the name with its trailing token removed. The second
// return is false for single-token names, which have no parent.
func (n Name) Parent() (Name, bool) {
	idx := strings.LastIndex(n.path, " ")
	if idx < 0 {
		return Name{}, false
	}
	return Name{path: n.path[:idx]}, true
}

// Alias returns the name with its leaf token replaced. The hierarchy above
// the leaf is preserved; for single-token names the alias becomes the whole
// name.
func (n Name) Alias(leaf string) (Name, error) {
	tokens := n.Tokens()
	if len(tokens) == 0 {
		return Name{}, ErrNameEmpty
	}
	tokens[len(tokens)-1] = leaf
	return NewName(tokens...)
}

// Prefixed returns the name with the plugin id prepended as a new root
// token, the namespace a plugin can always reach its own commands under.
func (n Name) Prefixed(pluginID string) (Name, error) {
	return NewName(append([]string{pluginID}, n.Tokens()...)...)
}

// String returns the canonical space-joined form.
func (n Name) String() string {
	return n.path
}
