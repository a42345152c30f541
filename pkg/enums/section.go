package enums

import "fmt"

// Section is the secondary-school track of grades 2 and 3.
type Section string

const (
	SectionNone       Section = ""
	SectionScience    Section = "science"
	SectionMath       Section = "math"
	SectionLiterature Section = "literature"
)

var validSections = []Section{
	SectionNone,
	SectionScience,
	SectionMath,
	SectionLiterature,
}

// String implements fmt.Stringer.
func (s Section) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Section.
func (s Section) IsValid() bool {
	for _, candidate := range validSections {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSection converts raw input into a Section.
func ParseSection(value string) (Section, error) {
	for _, candidate := range validSections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid section %q", value)
}
