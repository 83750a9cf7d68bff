package approval

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("approval: not found")
	// ErrNotOwner is returned when an actor touches a record belonging to
	// someone else (cancelling a proposal, marking a rejection read). There
	// is no admin override for these.
	ErrNotOwner = errors.New("approval: not the owner of this record")
	// ErrRoleForbidden is returned when a restricted actor attempts a
	// decision, or any other role/operation mismatch.
	ErrRoleForbidden = errors.New("approval: role not permitted for this operation")
)

// ValidationError carries field-level problems found before any write.
type ValidationError struct {
	Fields map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) HasErrors() bool { return v != nil && len(v.Fields) > 0 }

func (v *ValidationError) add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	v.Fields[field] = msg
}
