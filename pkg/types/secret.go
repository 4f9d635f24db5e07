package types

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Redacted is the placeholder every implicit conversion of a Secret
// produces.
const Redacted = "**REDACTED**"

// Secret holds a credential. It decodes from plain JSON/YAML input so spec
// files stay ordinary, but every output path — fmt verbs, JSON, YAML —
// yields Redacted. The plaintext is only reachable through Reveal, which
// keeps accidental logging a compile-visible decision.
type Secret string

// Reveal returns the plaintext. Call sites are the audit surface: the
// config renderer and the SQL connection string builder.
func (s Secret) Reveal() string {
	return string(s)
}

// IsZero reports whether the secret is unset.
func (s Secret) IsZero() bool {
	return s == ""
}

// String implements fmt.Stringer and always redacts.
func (s Secret) String() string {
	return Redacted
}

// GoString redacts %#v output as well.
func (s Secret) GoString() string {
	return "types.Secret(" + Redacted + ")"
}

// MarshalJSON redacts. Journal records and API payloads can embed structs
// holding secrets without leaking them.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(Redacted)
}

// UnmarshalJSON reads plaintext input.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Secret(v)
	return nil
}

// MarshalYAML redacts. Rendered configs that need the plaintext must build
// their own plain-string fields from Reveal at marshal time.
func (s Secret) MarshalYAML() (interface{}, error) {
	return Redacted, nil
}

// UnmarshalYAML reads plaintext input.
func (s *Secret) UnmarshalYAML(value *yaml.Node) error {
	var v string
	if err := value.Decode(&v); err != nil {
		return err
	}
	*s = Secret(v)
	return nil
}
