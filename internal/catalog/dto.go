package catalog

import "github.com/angelmondragon/eltafawook-admin/pkg/enums"

// Branch is one physical shop location.
type Branch struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type School struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Item is a book or code sold per teacher and grade.
type Item struct {
	ID                string      `json:"id"`
	SKU               string      `json:"sku"`
	Name              string      `json:"name"`
	ResourceType      string      `json:"resource_type,omitempty"`
	Grade             enums.Grade `json:"grade"`
	TeacherID         string      `json:"teacher_id,omitempty"`
	DefaultPriceCents int64       `json:"default_price_cents"`
	ProfitCents       int64       `json:"profit_cents,omitempty"`
	IsActive          *bool       `json:"is_active,omitempty"`
}

type Teacher struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Phone   string `json:"phone,omitempty"`
}

// KGItem is a kindergarten item, only loaded for the kindergarten branch.
type KGItem struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	DefaultPriceCents int64  `json:"default_price_cents"`
}

// Snapshot is the reference data loaded after sign-in.
type Snapshot struct {
	Branches []Branch  `json:"branches"`
	Schools  []School  `json:"schools"`
	Items    []Item    `json:"items"`
	Teachers []Teacher `json:"teachers"`
	KGItems  []KGItem  `json:"kg_items,omitempty"`
}
