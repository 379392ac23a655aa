// Package catalog holds the item reference type shared by the cart and order
// layers. A reference is either internal (a catalog row key) or external (an
// opaque code from a guest catalog lookup); the distinction is resolved once,
// when a line is added to the cart, never guessed later.
package catalog

import "github.com/google/uuid"

type RefKind int

const (
	RefInternal RefKind = iota
	RefExternal
)

type ItemRef struct {
	kind RefKind
	id   uuid.UUID
	code string
}

func InternalRef(id uuid.UUID) ItemRef {
	return ItemRef{kind: RefInternal, id: id, code: id.String()}
}

func ExternalRef(code string) ItemRef {
	return ItemRef{kind: RefExternal, code: code}
}

// ParseRef classifies a raw reference string: a well-formed UUID is an
// internal key, anything else is an external catalog code.
func ParseRef(s string) ItemRef {
	if id, err := uuid.Parse(s); err == nil {
		return InternalRef(id)
	}
	return ExternalRef(s)
}

func (r ItemRef) Kind() RefKind { return r.kind }

// Code returns the raw reference for display, set for both kinds.
func (r ItemRef) Code() string { return r.code }

// InternalID returns the catalog key and true for internal refs. External
// refs have no internal key and persist as NULL on order lines.
func (r ItemRef) InternalID() (string, bool) {
	if r.kind != RefInternal {
		return "", false
	}
	return r.id.String(), true
}
