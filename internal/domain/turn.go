package domain

import "context"

// Role is the author of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// roleModel is the legacy name some stored records use for assistant turns
	roleModel Role = "model"
)

// Turn is one immutable entry of a conversation session
type Turn struct {
	Role  Role     `json:"role"`
	Parts []string `json:"parts"`
}

// NewTurn builds a turn with a single text part
func NewTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []string{text}}
}

// Text joins all parts of the turn
func (t Turn) Text() string {
	switch len(t.Parts) {
	case 0:
		return ""
	case 1:
		return t.Parts[0]
	}
	out := t.Parts[0]
	for _, p := range t.Parts[1:] {
		out += "\n" + p
	}
	return out
}

// NormalizeRole maps stored role names onto the supported set. The second
// result is false for roles that cannot be replayed.
func NormalizeRole(r Role) (Role, bool) {
	switch r {
	case RoleUser:
		return RoleUser, true
	case RoleAssistant, roleModel:
		return RoleAssistant, true
	default:
		return "", false
	}
}

// TruncateTurns keeps the most recent max turns in their original order
func TruncateTurns(turns []Turn, max int) []Turn {
	if max <= 0 || len(turns) <= max {
		return turns
	}
	out := make([]Turn, max)
	copy(out, turns[len(turns)-max:])
	return out
}

// HistoryRepository persists one serialized conversation document per user.
// Load returns (nil, nil) when no record exists.
type HistoryRepository interface {
	Load(ctx context.Context, userID string) ([]byte, error)
	Upsert(ctx context.Context, userID string, payload []byte) error
	Delete(ctx context.Context, userID string) error
}
