package students

import (
	"strings"

	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/phone"
)

// CleanSpaces collapses runs of whitespace and trims the ends.
func CleanSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsTwoWordName reports whether s is exactly two words.
func IsTwoWordName(s string) bool {
	return len(strings.Fields(s)) == 2
}

func invalid(title, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithTitle(title)
}

// buildPayload applies the name and phone rules shared by create and update.
func buildPayload(in Input) (payload, error) {
	name := CleanSpaces(in.FullName)
	if !IsTwoWordName(name) {
		return payload{}, invalid("Invalid name", "student name must be exactly two words")
	}
	studentPhone, ok := phone.NormalizeEgyptian(in.Phone)
	if !ok {
		return payload{}, invalid("Invalid phone", "student phone must be a valid Egyptian mobile number")
	}
	var parentPhone *string
	if strings.TrimSpace(in.ParentPhone) != "" {
		p, ok := phone.NormalizeEgyptian(in.ParentPhone)
		if !ok {
			return payload{}, invalid("Invalid parent phone", "parent phone must be a valid Egyptian mobile number")
		}
		parentPhone = &p
	}

	gender := in.Gender
	if gender == "" {
		gender = enums.GenderMale
	}
	if !gender.IsValid() {
		return payload{}, invalid("Invalid gender", "gender must be male or female")
	}
	section := enums.Section(strings.ToLower(strings.TrimSpace(string(in.Section))))
	if !section.IsValid() {
		return payload{}, invalid("Invalid section", "section must be science, math or literature")
	}

	optIn := true
	if in.WhatsAppOptIn != nil {
		optIn = *in.WhatsAppOptIn
	}

	out := payload{
		FullName:      name,
		Phone:         studentPhone,
		ParentPhone:   parentPhone,
		Gender:        gender,
		Grade:         in.Grade,
		Section:       section,
		BranchID:      strings.TrimSpace(in.BranchID),
		WhatsAppOptIn: optIn,
	}
	if id := strings.TrimSpace(in.SchoolID); id != "" && id != OtherSchoolID {
		out.SchoolID = &id
	}
	return out, nil
}

// buildCreatePayload adds the create-only rules: grade 1 is always science and
// a school is required, either picked or typed in under "other".
func buildCreatePayload(in Input) (payload, error) {
	out, err := buildPayload(in)
	if err != nil {
		return payload{}, err
	}
	if out.Grade == enums.GradeOne {
		out.Section = enums.SectionScience
	}
	switch strings.TrimSpace(in.SchoolID) {
	case OtherSchoolID:
		name := strings.TrimSpace(in.NewSchoolName)
		if name == "" {
			return payload{}, invalid("School name required", "enter the new school's name")
		}
		out.NewSchoolName = name
		out.SchoolID = nil
	case "":
		return payload{}, invalid("School required", "choose a school")
	}
	return out, nil
}
