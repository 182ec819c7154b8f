package redis

import "strconv"

const (
	// KeyPrefixBookmark is the prefix for bookmark value keys
	KeyPrefixBookmark = "shelf:bookmark:"
	// KeyBookmarkIDs is the sorted set of live ids, scored by id
	KeyBookmarkIDs = "shelf:bookmarks:ids"
	// KeyBookmarkSeq is the id sequence, only ever incremented
	KeyBookmarkSeq = "shelf:bookmarks:seq"
)

// BookmarkKey returns the Redis key for a bookmark
func BookmarkKey(id int64) string {
	return KeyPrefixBookmark + strconv.FormatInt(id, 10)
}

// scoreAfter is the exclusive lower bound of a ZRANGE BYSCORE
func scoreAfter(id int64) string {
	return "(" + strconv.FormatInt(id, 10)
}
