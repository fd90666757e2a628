// Package ids issues and checks the 24-character hexadecimal identifiers used
// for patients and appointments.
package ids

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var hexID = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// New returns a fresh ObjectID in lowercase hex form.
func New() string {
	return primitive.NewObjectID().Hex()
}

// Valid reports whether s has the 24-hex identifier shape.
func Valid(s string) bool {
	return hexID.MatchString(s)
}

// Normalize lower-cases a valid id so lookups match stored values.
func Normalize(s string) (string, bool) {
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil || !Valid(s) {
		return "", false
	}
	return oid.Hex(), true
}
