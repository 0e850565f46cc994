package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"curryhouse/internal/domain"
	menusvc "curryhouse/internal/service/menu"
)

type MenuWriter interface {
	Upsert(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
}

// CSVImporter reads a menu spreadsheet export and inserts/updates items by name.
//
// Expected headers: name, description, price (NOK, up to two decimals),
// category, tags, image, popular, vegetarian, spice, prep, available. A row
// with an empty name continues the previous item and only contributes tags.
type CSVImporter struct {
	reader *csv.Reader
	menu   MenuWriter
}

func NewCSVImporter(r io.Reader, menu MenuWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{reader: csvr, menu: menu}
}

// Run parses CSV rows and upserts menu items. It returns how many were saved.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["name"]; !ok {
		return 0, errors.New("missing name column")
	}

	var (
		current  *domain.MenuItem
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		name := pick(record, index, "name")
		if name == "" {
			if current != nil {
				current.Tags = append(current.Tags, menusvc.SplitTags(pick(record, index, "tags"))...)
			}
			continue
		}

		if current != nil {
			if err := i.save(ctx, current); err != nil {
				return imported, err
			}
			imported++
		}
		current, err = parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("row %d (%s): %w", line, name, err)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, item *domain.MenuItem) error {
	if err := menusvc.Validate(*item); err != nil {
		return fmt.Errorf("invalid menu row %q: %w", item.Name, err)
	}
	if _, err := i.menu.Upsert(ctx, *item); err != nil {
		return fmt.Errorf("upsert menu item %q: %w", item.Name, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (*domain.MenuItem, error) {
	price, err := parsePriceNOK(pick(record, index, "price"))
	if err != nil {
		return nil, err
	}
	item := &domain.MenuItem{
		Name:         pick(record, index, "name"),
		Description:  pick(record, index, "description"),
		PriceCents:   price,
		Category:     pick(record, index, "category"),
		Tags:         menusvc.SplitTags(strings.ReplaceAll(pick(record, index, "tags"), ";", ",")),
		Image:        pick(record, index, "image"),
		IsAvailable:  parseBool(pick(record, index, "available"), true),
		IsPopular:    parseBool(pick(record, index, "popular"), false),
		IsVegetarian: parseBool(pick(record, index, "vegetarian"), false),
	}
	if v := pick(record, index, "spice"); v != "" {
		if item.SpiceLevel, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("spice: %w", err)
		}
	}
	if v := pick(record, index, "prep"); v != "" {
		if item.PreparationTime, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("prep: %w", err)
		}
	}
	return item, nil
}

// parsePriceNOK turns "219", "219.5" or "219,50" into øre.
func parsePriceNOK(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	whole, frac, _ := strings.Cut(strings.ReplaceAll(v, ",", "."), ".")
	kroner, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", v, err)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("price %q: more than two decimals", v)
	}
	var ore int64
	if frac != "" {
		if ore, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return 0, fmt.Errorf("price %q: %w", v, err)
		}
		if len(frac) == 1 {
			ore *= 10
		}
	}
	return kroner*100 + ore, nil
}

func parseBool(v string, def bool) bool {
	switch strings.ToLower(v) {
	case "":
		return def
	case "1", "true", "yes", "y", "ja":
		return true
	}
	return false
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
