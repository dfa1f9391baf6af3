package services

// Level is the access level the identity gate resolved for a request.
type Level int

const (
	// LevelAnonymous means no credentials were presented.
	LevelAnonymous Level = iota
	// LevelAuthor means a valid, non-revoked author token was presented.
	LevelAuthor
	// LevelInvalid means credentials were presented but rejected.
	LevelInvalid
)

func (l Level) String() string {
	switch l {
	case LevelAuthor:
		return "author"
	case LevelInvalid:
		return "invalid"
	default:
		return "anonymous"
	}
}

// IsAuthor reports whether protected mutations and hidden content are allowed.
func (l Level) IsAuthor() bool {
	return l == LevelAuthor
}
