package server

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MartinDM/data-app/internal/detail"
	"github.com/MartinDM/data-app/internal/domain"
	"github.com/MartinDM/data-app/internal/view"
)

// maskedAccount replaces an account number while values are hidden.
const maskedAccount = "****"

// --- Request DTOs ---

type filterRequest struct {
	Value any `json:"value"`
}

type sortRequest struct {
	Column    string         `json:"column"`
	Direction view.Direction `json:"direction"`
}

type selectAllRequest struct {
	Selected bool `json:"selected"`
}

type columnRequest struct {
	Visible bool `json:"visible"`
}

type pageRequest struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

type valuesHiddenRequest struct {
	Hidden bool `json:"hidden"`
}

// --- Response DTOs ---

// personRow is one table row. Salary is null and the account number masked
// while values are hidden.
type personRow struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Risk          int             `json:"risk"`
	RiskBand      domain.RiskBand `json:"riskBand"`
	Location      domain.Location `json:"location"`
	Salary        *int            `json:"salary"`
	AccountNumber string          `json:"accountNumber"`
	DOB           string          `json:"dob"`
}

type profileResponse struct {
	personRow
	Bio string `json:"bio"`
}

type viewResponse struct {
	Version         uint64        `json:"version"`
	SnapshotID      ulid.ULID     `json:"snapshotId"`
	GeneratedAt     string        `json:"generatedAt"`
	Rows            []personRow   `json:"rows"`
	RowCount        int           `json:"rowCount"`
	TotalCount      int           `json:"totalCount"`
	PageIndex       int           `json:"pageIndex"`
	PageSize        int           `json:"pageSize"`
	PageCount       int           `json:"pageCount"`
	Facets          view.Facets   `json:"facets"`
	SelectedRecords []personRow   `json:"selectedRecords"`
	SelectedCount   int           `json:"selectedCount"`
	VisibleColumns  []view.Column `json:"visibleColumns"`
	Sort            view.Sort     `json:"sort"`
	Filters         view.Filters  `json:"filters"`
	ValuesHidden    bool          `json:"valuesHidden"`
}

type refreshResponse struct {
	SnapshotID  ulid.ULID `json:"snapshotId"`
	GeneratedAt string    `json:"generatedAt"`
	Size        int       `json:"size"`
}

type selectionResponse struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

type detailResponse struct {
	ID         string         `json:"id"`
	PersonID   string         `json:"personId"`
	SnapshotID ulid.ULID      `json:"snapshotId"`
	Found      bool           `json:"found"`
	Person     *personRow     `json:"person,omitempty"`
	Address    detail.Address `json:"address"`
	OpenedAt   string         `json:"openedAt"`
}

type notFoundResponse struct {
	Error string `json:"error"`
	ID    string `json:"id"`
	Found bool   `json:"found"`
}

func toPersonRow(p domain.Person, masked bool) personRow {
	row := personRow{
		ID:            p.ID,
		Name:          p.Name,
		Risk:          p.Risk,
		RiskBand:      p.RiskBand(),
		Location:      p.Location,
		AccountNumber: p.AccountNumber,
		DOB:           p.DOB,
	}
	if masked {
		row.AccountNumber = maskedAccount
		return row
	}
	salary := p.Salary
	row.Salary = &salary
	return row
}

func toPersonRows(people []domain.Person, masked bool) []personRow {
	rows := make([]personRow, 0, len(people))
	for _, p := range people {
		rows = append(rows, toPersonRow(p, masked))
	}
	return rows
}

func toViewResponse(v view.View) viewResponse {
	return viewResponse{
		Version:         v.Version,
		SnapshotID:      v.SnapshotID,
		GeneratedAt:     formatTime(v.GeneratedAt),
		Rows:            toPersonRows(v.Rows, v.ValuesHidden),
		RowCount:        v.RowCount,
		TotalCount:      v.TotalCount,
		PageIndex:       v.PageIndex,
		PageSize:        v.PageSize,
		PageCount:       v.PageCount,
		Facets:          v.Facets,
		SelectedRecords: toPersonRows(v.SelectedRecords, v.ValuesHidden),
		SelectedCount:   v.SelectedCount,
		VisibleColumns:  v.VisibleColumns,
		Sort:            v.Sort,
		Filters:         v.Filters,
		ValuesHidden:    v.ValuesHidden,
	}
}

func toDetailResponse(v detail.View, masked bool) detailResponse {
	row := toPersonRow(v.Person, masked)
	return detailResponse{
		ID:         v.ID,
		PersonID:   v.PersonID,
		SnapshotID: v.SnapshotID,
		Found:      true,
		Person:     &row,
		Address:    v.Address,
		OpenedAt:   formatTime(v.OpenedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
