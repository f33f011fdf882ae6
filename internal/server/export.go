package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MartinDM/data-app/internal/domain"
)

const (
	exportScopeFiltered = "filtered"
	exportScopeSelected = "selected"
)

var exportHeader = []string{"id", "name", "risk", "riskBand", "city", "salary", "accountNumber", "dob"}

// exportView streams the filtered or selected rows as CSV, honouring value
// masking.
func (h *APIHandlers) exportView(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = exportScopeFiltered
	}

	var people []domain.Person
	switch scope {
	case exportScopeFiltered:
		people = h.engine.Filtered()
	case exportScopeSelected:
		people = h.engine.Derive().SelectedRecords
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown export scope %q", scope))
		return
	}
	masked := h.engine.ValuesHidden()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="people-%s.csv"`, scope))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		h.logger.Error("failed to write csv header", "error", err)
		return
	}
	for _, p := range people {
		row := toPersonRow(p, masked)
		salary := ""
		if row.Salary != nil {
			salary = strconv.Itoa(*row.Salary)
		}
		record := []string{
			row.ID,
			row.Name,
			strconv.Itoa(row.Risk),
			string(row.RiskBand),
			row.Location.City,
			salary,
			row.AccountNumber,
			row.DOB,
		}
		if err := cw.Write(record); err != nil {
			h.logger.Error("failed to write csv row", "error", err, "id", p.ID)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("failed to flush csv", "error", err)
	}
}
