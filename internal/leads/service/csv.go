package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"revive_backend/internal/leads/repository"
	"revive_backend/platform/apperr"

	"github.com/google/uuid"
)

// ImportResult reports how a CSV import went.
type ImportResult struct {
	Imported int               `json:"count"`
	Skipped  int               `json:"skipped"`
	Leads    []repository.Lead `json:"leads"`
}

// column aliases accepted in the header row, matched case-insensitively
var csvColumns = map[string]string{
	"name":     "name",
	"phone":    "phone",
	"interest": "interest",
	"notes":    "notes",
}

// ParseCSV reads contacts from a CSV with a header row. Column order is free.
func ParseCSV(r io.Reader) ([]UploadLead, int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, apperr.Validation("CSV file is empty")
	}
	if err != nil {
		return nil, 0, apperr.Validation("could not read CSV header")
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if col, ok := csvColumns[key]; ok {
			index[col] = i
		}
	}
	if _, ok := index["name"]; !ok {
		return nil, 0, apperr.Validation("CSV must have a Name column")
	}
	if _, ok := index["phone"]; !ok {
		return nil, 0, apperr.Validation("CSV must have a Phone column")
	}

	field := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var items []UploadLead
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, apperr.Validation("malformed CSV: " + err.Error())
		}
		item := UploadLead{
			Name:     field(record, "name"),
			Phone:    field(record, "phone"),
			Interest: field(record, "interest"),
			Notes:    field(record, "notes"),
		}
		if item.Name == "" || item.Phone == "" {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

// ImportCSV parses and uploads a CSV file.
func (s *Service) ImportCSV(ctx context.Context, tenantID uuid.UUID, r io.Reader) (ImportResult, error) {
	items, skipped, err := ParseCSV(r)
	if err != nil {
		return ImportResult{}, err
	}
	leads, err := s.Upload(ctx, tenantID, items)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Imported: len(leads), Skipped: skipped, Leads: leads}, nil
}
