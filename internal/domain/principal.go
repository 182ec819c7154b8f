package domain

import "strconv"

// Principal is the authenticated caller. A nil *Principal means anonymous.
type Principal struct {
	ID int64
}

// ParsePrincipal builds a principal from its textual id.
// An empty string yields an anonymous (nil) principal.
func ParsePrincipal(raw string) (*Principal, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrInvalidPrincipal
	}
	return &Principal{ID: id}, nil
}

// Key returns a stable cache key, "anonymous" for a nil principal.
func (p *Principal) Key() string {
	if p == nil {
		return "anonymous"
	}
	return "user:" + strconv.FormatInt(p.ID, 10)
}
