package domain

import "encoding/json"

// Nullable distinguishes "field absent" from "field set to null" in partial
// updates. Set is true whenever the key appeared in the input.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Null returns a Nullable explicitly cleared.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

// Some returns a Nullable set to v.
func Some[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

// UnmarshalJSON marks the field present; null leaves Value nil.
func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}
