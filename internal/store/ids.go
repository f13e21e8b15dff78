package store

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

const (
	eventIDPrefix    = "evt"
	calendarIDPrefix = "cal"
	changeIDPrefix   = "chg"
)

// newRandomID returns prefix-<suffix> where suffix is 8 chars of base32 (lowercase, no padding).
func newRandomID(prefix string) (string, error) {
	var b [5]byte // 40 bits -> 8 base32 chars
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	suffix := strings.ToLower(enc.EncodeToString(b[:]))
	return prefix + "-" + suffix, nil
}

// NextID returns a fresh id that does not collide with anything in db.
func NextID(db *DB, prefix string) (string, error) {
	for i := 0; i < 10; i++ {
		id, err := newRandomID(prefix)
		if err != nil {
			return "", err
		}
		if !idExists(db, id) {
			return id, nil
		}
	}
	// 40 bits of space; ten straight collisions means something else is wrong.
	return newRandomID(prefix + "x")
}

// LooksLikeEventID reports whether s has the shape of a generated event id.
func LooksLikeEventID(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, eventIDPrefix+"-") {
		return false
	}
	suffix := strings.TrimPrefix(s, eventIDPrefix+"-")
	if len(suffix) != 8 {
		return false
	}
	for _, r := range suffix {
		if !(r >= 'a' && r <= 'z') && !(r >= '2' && r <= '7') {
			return false
		}
	}
	return true
}
