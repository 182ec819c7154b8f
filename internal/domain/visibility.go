package domain

// CanView reports whether principal may observe the record.
// A record passes if it is public, or if principal is present and owns it.
func CanView(b *Bookmark, principal *Principal) bool {
	if b == nil {
		return false
	}
	if b.Public {
		return true
	}
	return principal != nil && b.OwnedBy(principal.ID)
}

// FilterVisible keeps only the records principal may observe, preserving order.
func FilterVisible(records []*Bookmark, principal *Principal) []*Bookmark {
	visible := make([]*Bookmark, 0, len(records))
	for _, b := range records {
		if CanView(b, principal) {
			visible = append(visible, b)
		}
	}
	return visible
}

// CanModify reports whether principal may mutate the record.
// Anonymous callers never can; unowned legacy records are open to any
// authenticated caller.
func CanModify(b *Bookmark, principal *Principal) bool {
	if b == nil || principal == nil {
		return false
	}
	return b.OwnerID == nil || b.OwnedBy(principal.ID)
}
