package students

import "github.com/angelmondragon/eltafawook-admin/pkg/enums"

// OtherSchoolID marks a student whose school is not in the list yet.
const OtherSchoolID = "other"

// Student is a student record as returned by the remote API.
type Student struct {
	ID            string        `json:"id"`
	PublicID      int64         `json:"public_id"`
	FullName      string        `json:"full_name"`
	Phone         string        `json:"phone"`
	ParentPhone   *string       `json:"parent_phone"`
	SchoolID      *string       `json:"school_id"`
	SchoolName    string        `json:"school_name,omitempty"`
	Gender        enums.Gender  `json:"gender"`
	Grade         enums.Grade   `json:"grade"`
	Section       enums.Section `json:"section"`
	BranchID      string        `json:"branch_id,omitempty"`
	WhatsAppOptIn bool          `json:"whatsapp_opt_in"`
}

// Input is the operator-entered student form, used for create and update.
type Input struct {
	FullName      string        `json:"full_name" validate:"required"`
	Phone         string        `json:"phone" validate:"required"`
	ParentPhone   string        `json:"parent_phone"`
	SchoolID      string        `json:"school_id"`
	NewSchoolName string        `json:"new_school_name"`
	Gender        enums.Gender  `json:"gender" validate:"omitempty,oneof=male female"`
	Grade         enums.Grade   `json:"grade" validate:"omitempty,min=1,max=3"`
	Section       enums.Section `json:"section"`
	BranchID      string        `json:"branch_id"`
	WhatsAppOptIn *bool         `json:"whatsapp_opt_in"`
}

type payload struct {
	FullName      string        `json:"full_name"`
	Phone         string        `json:"phone"`
	ParentPhone   *string       `json:"parent_phone"`
	SchoolID      *string       `json:"school_id"`
	NewSchoolName string        `json:"new_school_name,omitempty"`
	Gender        enums.Gender  `json:"gender"`
	Grade         enums.Grade   `json:"grade"`
	Section       enums.Section `json:"section"`
	BranchID      string        `json:"branch_id,omitempty"`
	WhatsAppOptIn bool          `json:"whatsapp_opt_in"`
}

// CreateResult is the created student plus the outcome of the welcome messages.
type CreateResult struct {
	Student  Student  `json:"student"`
	Queued   int      `json:"messages_queued"`
	Warnings []string `json:"warnings,omitempty"`
}
