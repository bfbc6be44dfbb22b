// Package models defines the core data structures for users and their
// item collections, together with the error variants shared by every layer.
package models

import "fmt"

// MaxCollectionSize is the maximum number of distinct item ids a single
// collection (favourites or history) may hold.
const MaxCollectionSize = 50

// User represents an application user with credentials and collections.
type User struct {
	// ID is the unique identifier assigned by the store.
	ID string `json:"_id"`
	// UserName is the unique login name chosen by the user.
	UserName string `json:"userName"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte `json:"-"`
	// Favourites holds the ids of items the user marked as favourite.
	Favourites []string `json:"favourites"`
	// History holds the ids of items the user has visited.
	History []string `json:"history"`
}

// Collection returns the items of the named collection.
func (u *User) Collection(kind CollectionKind) []string {
	switch kind {
	case Favourites:
		return u.Favourites
	case History:
		return u.History
	}
	return nil
}

// CollectionKind names one of the per-user item collections.
type CollectionKind string

const (
	// Favourites is the collection of items marked as favourite.
	Favourites CollectionKind = "favourites"
	// History is the collection of recently visited items.
	History CollectionKind = "history"
)

// Valid reports whether k names a known collection.
func (k CollectionKind) Valid() bool {
	return k == Favourites || k == History
}

// ParseCollectionKind converts s into a CollectionKind.
func ParseCollectionKind(s string) (CollectionKind, error) {
	k := CollectionKind(s)
	if !k.Valid() {
		return "", &ValidationError{Field: "collection", Reason: fmt.Sprintf("unknown collection %q", s)}
	}
	return k, nil
}

// Dedupe returns items with duplicates removed, keeping the first
// occurrence of each id. It never returns nil.
func Dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Contains reports whether items holds id.
func Contains(items []string, id string) bool {
	for _, it := range items {
		if it == id {
			return true
		}
	}
	return false
}
