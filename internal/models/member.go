package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MemberRef identifies a member. The backend sends it either as a bare
// identifier or as a populated member object; both decode to the same value.
type MemberRef struct {
	ID    string `json:"-"`
	Name  string `json:"-"`
	Email string `json:"-"`
}

// Ref builds a MemberRef from a bare identifier.
func Ref(id string) *MemberRef {
	return &MemberRef{ID: strings.TrimSpace(id)}
}

// String returns the canonical identifier.
func (m MemberRef) String() string {
	return strings.TrimSpace(m.ID)
}

// IsZero reports whether the reference carries no identifier.
func (m MemberRef) IsZero() bool {
	return m.String() == ""
}

// Same reports whether both references denote the same member.
func (m MemberRef) Same(other MemberRef) bool {
	return !m.IsZero() && m.String() == other.String()
}

// MarshalJSON always encodes the bare identifier.
func (m MemberRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a string, a populated object carrying "_id" or "id",
// or null.
func (m *MemberRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = MemberRef{}
		return nil
	}

	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode member id: %w", err)
		}
		*m = MemberRef{ID: strings.TrimSpace(id)}
		return nil
	}

	var obj struct {
		MongoID json.RawMessage `json:"_id"`
		ID      json.RawMessage `json:"id"`
		Name    string          `json:"name"`
		Email   string          `json:"email"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode member object: %w", err)
	}

	id := rawID(obj.MongoID)
	if id == "" {
		id = rawID(obj.ID)
	}
	*m = MemberRef{ID: id, Name: obj.Name, Email: obj.Email}
	return nil
}

// rawID reads an identifier that may have been encoded as a string or number.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// CanonicalID resolves any supported member reference shape to its
// identifier string. Unsupported shapes resolve to "".
func CanonicalID(v any) string {
	switch ref := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(ref)
	case MemberRef:
		return ref.String()
	case *MemberRef:
		if ref == nil {
			return ""
		}
		return ref.String()
	case map[string]any:
		if id := CanonicalID(ref["_id"]); id != "" {
			return id
		}
		return CanonicalID(ref["id"])
	case fmt.Stringer:
		return strings.TrimSpace(ref.String())
	default:
		return ""
	}
}
