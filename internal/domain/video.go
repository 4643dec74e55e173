package domain

import (
	"fmt"
	"strings"
)

const videoURLPrefix = "https://www.bilibili.com/video/"

// WatchURL derives the public watch page for an item. Only BV-prefixed
// identifiers are supported; anything else degrades that one record with
// ErrUnsupportedItemID instead of aborting the process.
func WatchURL(id ItemID) (string, error) {
	if !strings.HasPrefix(string(id), "BV") {
		return "", fmt.Errorf("derive watch url for %q: %w", id, ErrUnsupportedItemID)
	}
	return videoURLPrefix + string(id) + "/", nil
}
