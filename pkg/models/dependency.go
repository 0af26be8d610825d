package models

import (
	"fmt"
	"time"
)

// DependencyType is the kind of a dependency edge. It is a closed enum: the
// only values are DependencyBlocking and DependencyInformational, and the zero
// value is invalid so that an unset type is never mistaken for either.
type DependencyType struct {
	kind uint8
}

const (
	kindInvalid uint8 = iota
	kindBlocking
	kindInformational
)

var (
	// DependencyBlocking means the dependent cannot start until the dependency
	// is completed.
	DependencyBlocking = DependencyType{kind: kindBlocking}
	// DependencyInformational is advisory only and never constrains starting.
	DependencyInformational = DependencyType{kind: kindInformational}
)

// IsBlocking reports whether the edge constrains start eligibility.
func (d DependencyType) IsBlocking() bool {
	return d.kind == kindBlocking
}

// IsValid reports whether d is one of the two known variants.
func (d DependencyType) IsValid() bool {
	return d.kind == kindBlocking || d.kind == kindInformational
}

func (d DependencyType) String() string {
	switch d.kind {
	case kindBlocking:
		return "blocking"
	case kindInformational:
		return "informational"
	default:
		return "invalid"
	}
}

// ParseDependencyType converts "blocking" or "informational" into a
// DependencyType. Any other input is an error.
func ParseDependencyType(s string) (DependencyType, error) {
	switch s {
	case "blocking":
		return DependencyBlocking, nil
	case "informational":
		return DependencyInformational, nil
	default:
		return DependencyType{}, fmt.Errorf("invalid dependency type %q: must be blocking or informational", s)
	}
}

// MarshalText implements encoding.TextMarshaler; YAML and JSON both use it.
func (d DependencyType) MarshalText() ([]byte, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("marshaling dependency type: invalid value")
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DependencyType) UnmarshalText(text []byte) error {
	parsed, err := ParseDependencyType(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DependencyEdge records that TaskID depends on DependsOnTaskID.
type DependencyEdge struct {
	ID              string         `yaml:"id" json:"id"`
	TaskID          string         `yaml:"task_id" json:"task_id"`
	DependsOnTaskID string         `yaml:"depends_on_task_id" json:"depends_on_task_id"`
	Type            DependencyType `yaml:"type" json:"type"`
	Created         time.Time      `yaml:"created,omitempty" json:"created,omitempty"`
}
