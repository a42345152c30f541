package catalog

import (
	"strings"

	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
)

const secondLanguage = "2nd Language"

var secondLanguages = []string{"French", "German", "Italian", "Spanish", "Chinese"}

// subjectsByGradeAndSection lists the subjects a student may buy for. Grade 1
// has one common track; grades 2 and 3 are keyed by section.
var subjectsByGradeAndSection = map[enums.Grade]map[enums.Section][]string{
	enums.GradeOne: {
		enums.SectionNone: {"Religion", "Arabic", "English", "Math", "Science", "Psychology", "History", secondLanguage, "Computer Science"},
	},
	enums.GradeTwo: {
		enums.SectionLiterature: {"Arabic", "English", "Geography", "History", "Psychology", "Math", secondLanguage},
		enums.SectionScience:    {"Arabic", "English", "Chemistry", "Biology", "Physics", "Math", secondLanguage},
	},
	enums.GradeThree: {
		enums.SectionLiterature: {"Arabic", "English", "History", "Geography", "Math", "Psychology", secondLanguage},
		enums.SectionScience:    {"Arabic", "English", "Biology", "Chemistry", "Physics", secondLanguage, "Geology"},
		enums.SectionMath:       {"Arabic", "English", "Math", "Chemistry", "Physics", secondLanguage},
	},
}

// AllowedSubjects returns the subjects for grade/section, nil when the pair is unknown.
func AllowedSubjects(grade enums.Grade, section enums.Section) []string {
	tracks, ok := subjectsByGradeAndSection[grade]
	if !ok {
		return nil
	}
	if grade == enums.GradeOne {
		return tracks[enums.SectionNone]
	}
	return tracks[enums.Section(strings.ToLower(strings.TrimSpace(string(section))))]
}

// FilterTeachers keeps teachers whose subject the student studies. An unknown
// grade/section keeps every teacher.
func FilterTeachers(teachers []Teacher, grade enums.Grade, section enums.Section) []Teacher {
	allowed := AllowedSubjects(grade, section)
	if allowed == nil {
		return teachers
	}
	takesLanguage := contains(allowed, secondLanguage)
	out := make([]Teacher, 0, len(teachers))
	for _, t := range teachers {
		if contains(allowed, t.Subject) || (takesLanguage && contains(secondLanguages, t.Subject)) {
			out = append(out, t)
		}
	}
	return out
}

// FilterItems keeps items of teacherID (all when empty) and grade (all when unknown).
func FilterItems(items []Item, teacherID string, grade enums.Grade) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if teacherID != "" && it.TeacherID != teacherID {
			continue
		}
		if grade != enums.GradeUnknown && it.Grade != grade {
			continue
		}
		out = append(out, it)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
