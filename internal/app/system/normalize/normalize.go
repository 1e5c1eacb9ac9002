// Package normalize canonicalizes user input before validation and storage.
package normalize

import (
	"strings"

	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses inner whitespace.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role lowercases an active role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Category lowercases a listing category, mapping unknown values to "".
func Category(s string) string {
	c := strings.ToLower(strings.TrimSpace(s))
	if !models.IsValidCategory(c) {
		return ""
	}
	return c
}

// ListingType lowercases a listing type, mapping unknown values to "".
func ListingType(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	if !models.IsValidListingType(t) {
		return ""
	}
	return t
}

// BloodGroup uppercases and strips spaces ("ab +" becomes "AB+"). Unknown
// groups map to "".
func BloodGroup(s string) string {
	bg := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if !models.IsValidBloodGroup(bg) {
		return ""
	}
	return bg
}

// QueryParam trims a query string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
