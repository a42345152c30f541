package transfers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/eltafawook-admin/internal/session"
	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
)

// Transfer moves stock of one item between two branches.
type Transfer struct {
	FromBranchID string `json:"from_branch_id" validate:"required"`
	ToBranchID   string `json:"to_branch_id" validate:"required"`
	ItemID       string `json:"item_id" validate:"required"`
	Qty          int    `json:"qty" validate:"required,gt=0"`
}

// InventoryRow is one line of the branch inventory report.
type InventoryRow struct {
	ItemID    string `json:"item_id"`
	SKU       string `json:"sku,omitempty"`
	Name      string `json:"name,omitempty"`
	Grade     int    `json:"grade,omitempty"`
	TeacherID string `json:"teacher_id,omitempty"`
	OnHand    int    `json:"on_hand"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
}

type inventoryReport struct {
	Items []InventoryRow `json:"items"`
}

// Transferable keeps the teacher's rows that still have stock to move.
func Transferable(rows []InventoryRow, teacherID string) []InventoryRow {
	if teacherID == "" {
		return nil
	}
	var out []InventoryRow
	for _, r := range rows {
		if r.TeacherID == teacherID && r.Available > 0 {
			out = append(out, r)
		}
	}
	return out
}

type Service interface {
	// Create posts the transfer after checking it against the quantity
	// the caller last saw available at the source branch.
	Create(ctx context.Context, t Transfer, available int) (apiclient.Body, error)
	BranchInventory(ctx context.Context, branchCode string) ([]InventoryRow, error)
}

type ServiceParams struct {
	API     apiclient.Doer
	Session *session.Session
	Logger  *logger.Logger
}

type service struct {
	api  apiclient.Doer
	sess *session.Session
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("api client required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{api: params.API, sess: params.Session, logg: params.Logger}, nil
}

// Validate checks t locally.
func Validate(t Transfer, available int) error {
	switch {
	case strings.TrimSpace(t.FromBranchID) == "" || strings.TrimSpace(t.ToBranchID) == "" || t.ItemID == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "source, destination and item are required").WithTitle("Missing fields")
	case t.FromBranchID == t.ToBranchID:
		return pkgerrors.New(pkgerrors.CodeValidation, "source and destination must differ").WithTitle("Same branch")
	case t.Qty <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	case t.Qty > available:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("only %d available at the source branch", available)).WithTitle("Not enough stock")
	}
	return nil
}

func (s *service) Create(ctx context.Context, t Transfer, available int) (apiclient.Body, error) {
	if err := Validate(t, available); err != nil {
		return apiclient.Body{}, err
	}
	token, err := s.sess.RequireToken()
	if err != nil {
		return apiclient.Body{}, err
	}
	body, err := s.api.Do(ctx, "/transfers", apiclient.RequestOptions{Method: http.MethodPost, Body: t, AuthToken: token})
	if err != nil {
		return apiclient.Body{}, pkgerrors.Wrap(pkgerrors.As(err).Code(), err, apiclient.MessageOf(err)).WithTitle("Transfer failed")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from": t.FromBranchID, "to": t.ToBranchID, "item_id": t.ItemID, "qty": t.Qty,
	}), "transfer created")
	return body, nil
}

func (s *service) BranchInventory(ctx context.Context, branchCode string) ([]InventoryRow, error) {
	branchCode = strings.TrimSpace(branchCode)
	if branchCode == "" {
		branchCode = s.sess.Branch().Code
	}
	if branchCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch code required")
	}
	token, err := s.sess.RequireToken()
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, "/reports/branch-inventory?branch_code="+url.QueryEscape(branchCode), apiclient.RequestOptions{Method: http.MethodGet, AuthToken: token})
	if err != nil {
		return nil, err
	}
	var report inventoryReport
	if err := resp.Decode(&report); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode branch inventory")
	}
	return report.Items, nil
}
