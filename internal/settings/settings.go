package settings

import (
	"regexp"
	"strings"

	"github.com/angelmondragon/eltafawook-admin/pkg/enums"
)

// WASettings holds the WhatsApp group links and message templates used when
// a student is registered.
type WASettings struct {
	GroupLinkMale          string `json:"group_link_male"`
	GroupLinkFemale        string `json:"group_link_female"`
	MaleStudentJoinTpl     string `json:"male_student_join_tpl"`
	FemaleStudentJoinTpl   string `json:"female_student_join_tpl"`
	MaleParentWelcomeTpl   string `json:"male_parent_welcome_tpl"`
	FemaleParentWelcomeTpl string `json:"female_parent_welcome_tpl"`
}

// Defaults returns the stock links and templates.
func Defaults() WASettings {
	return WASettings{
		GroupLinkMale:   "https://chat.whatsapp.com/FagDTxSs9bcKsethsLTWDf",
		GroupLinkFemale: "https://chat.whatsapp.com/LNIorc2C6Lh93uUC6yxGOI",
		MaleStudentJoinTpl: "السلام عليكم ورحمة الله وبركاته\n" +
			"على الطالب {{student_name}} دخول جروب الاكاديمية لمتابعة الكتب الجديدة\n" +
			"{{group_link}}\n" +
			"ال ID الخاص بحضرتك هو {{student_id}}",
		FemaleStudentJoinTpl: "السلام عليكم ورحمة الله وبركاته\n" +
			"على الطالبة {{student_name}} دخول جروب الاكاديمية لمتابعة الكتب الجديدة\n" +
			"{{group_link}}\n" +
			"ال ID الخاص بحضراتكم هو {{student_id}}",
		MaleParentWelcomeTpl: "السلام عليكم\n" +
			"ابن حضراتكم {{student_name}} لسا مسجل عندنا فى اكاديمية التفوق و الID بتاعه هو {{student_id}}",
		FemaleParentWelcomeTpl: "السلام عليكم\n" +
			"بنت حضراتكم {{student_name}} لسا مسجلة عندنا فى اكاديمية التفوق و الID بتاعها هو {{student_id}}",
	}
}

// storedSettings is the persisted document. GroupLink is the single link
// older documents carried before links were split by gender.
type storedSettings struct {
	WASettings
	GroupLink string `json:"group_link,omitempty"`
}

// resolve overlays a stored document on the defaults.
func resolve(stored storedSettings) WASettings {
	out := Defaults()
	s := stored.WASettings
	if s.GroupLinkMale == "" {
		s.GroupLinkMale = stored.GroupLink
	}
	if s.GroupLinkFemale == "" {
		s.GroupLinkFemale = stored.GroupLink
	}
	overlay(&out.GroupLinkMale, s.GroupLinkMale)
	overlay(&out.GroupLinkFemale, s.GroupLinkFemale)
	overlay(&out.MaleStudentJoinTpl, s.MaleStudentJoinTpl)
	overlay(&out.FemaleStudentJoinTpl, s.FemaleStudentJoinTpl)
	overlay(&out.MaleParentWelcomeTpl, s.MaleParentWelcomeTpl)
	overlay(&out.FemaleParentWelcomeTpl, s.FemaleParentWelcomeTpl)
	return out
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// GroupLink returns the group invite for gender, falling back to the other
// gender's link when it is blank.
func (s WASettings) GroupLink(gender enums.Gender) string {
	if gender == enums.GenderFemale {
		return firstNonBlank(s.GroupLinkFemale, s.GroupLinkMale)
	}
	return firstNonBlank(s.GroupLinkMale, s.GroupLinkFemale)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// StudentJoinTemplate returns the join message template for gender.
func (s WASettings) StudentJoinTemplate(gender enums.Gender) string {
	if gender == enums.GenderFemale {
		return s.FemaleStudentJoinTpl
	}
	return s.MaleStudentJoinTpl
}

// ParentWelcomeTemplate returns the parent welcome template for gender.
func (s WASettings) ParentWelcomeTemplate(gender enums.Gender) string {
	if gender == enums.GenderFemale {
		return s.FemaleParentWelcomeTpl
	}
	return s.MaleParentWelcomeTpl
}

var placeholder = regexp.MustCompile(`{{\s*(\w+)\s*}}`)

// Render replaces {{ key }} placeholders with vars[key]; unknown keys render empty.
func Render(tpl string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		return vars[key]
	})
}
