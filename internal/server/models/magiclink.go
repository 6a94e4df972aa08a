package models

import "time"

// MagicLink is one row per issued login token. Used is flipped exactly once
// on a consuming verification; expiry is always computed from CreatedAt, so
// an expired-but-unused token still shows Used == false.
type MagicLink struct {
	Token     string
	Identity  string
	Used      bool
	CreatedAt time.Time
}
