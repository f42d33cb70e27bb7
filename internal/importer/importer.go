// Package importer turns a sales CSV into validated rows. Parsing is pure:
// it returns every good row plus a per-row error list and never touches the
// database.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical sales date format.
const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, "02/01/2006", "2/1/2006", "02-01-2006"}

// Header aliases, lower-cased.
var columns = map[string][]string{
	"date":     {"date", "sales_date", "tanggal"},
	"product":  {"product", "product_code", "code", "kode_produk"},
	"quantity": {"quantity", "qty", "jumlah"},
	"price":    {"price", "selling_price", "harga"},
}

type Row struct {
	Row      int
	Date     time.Time
	Product  string
	Quantity int
	Price    *decimal.Decimal
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type Result struct {
	Rows   []Row
	Errors []RowError
}

// Group is the rows of one sales date, in file order.
type Group struct {
	Date time.Time
	Rows []Row
}

func (g Group) Key() string {
	return g.Date.Format(DateLayout)
}

// Parse reads a CSV with a header row. Row numbers count the header as row 1.
func Parse(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return Result{}, errors.New("invalid CSV header")
	}
	index, err := headerIndex(headers)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("CSV read error: %v", err)
		}
		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}

		row, err := parseRow(record, index)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Message: err.Error()})
			continue
		}
		row.Row = line
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func headerIndex(headers []string) (map[string]int, error) {
	seen := map[string]int{}
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		seen[h] = i
	}

	index := map[string]int{}
	for col, aliases := range columns {
		for _, a := range aliases {
			if i, ok := seen[a]; ok {
				index[col] = i
				break
			}
		}
	}
	for _, required := range []string{"date", "product", "quantity"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("CSV header is missing column %q", required)
		}
	}
	return index, nil
}

func parseRow(record []string, index map[string]int) (Row, error) {
	field := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var row Row
	date, err := ParseDate(field("date"))
	if err != nil {
		return row, err
	}
	row.Date = date

	row.Product = field("product")
	if row.Product == "" {
		return row, errors.New("missing product code")
	}

	qty, err := strconv.Atoi(field("quantity"))
	if err != nil || qty <= 0 {
		return row, fmt.Errorf("invalid quantity %q", field("quantity"))
	}
	row.Quantity = qty

	if p := field("price"); p != "" {
		price, err := decimal.NewFromString(p)
		if err != nil || price.IsNegative() {
			return row, fmt.Errorf("invalid price %q", p)
		}
		row.Price = &price
	}
	return row, nil
}

// ParseDate accepts YYYY-MM-DD and the day-first formats spreadsheets export.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// GroupByDate splits rows into one group per sales date, oldest first.
func GroupByDate(rows []Row) []Group {
	byDate := map[string]*Group{}
	for _, r := range rows {
		key := r.Date.Format(DateLayout)
		g, ok := byDate[key]
		if !ok {
			g = &Group{Date: r.Date}
			byDate[key] = g
		}
		g.Rows = append(g.Rows, r)
	}

	groups := make([]Group, 0, len(byDate))
	for _, g := range byDate {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date.Before(groups[j].Date) })
	return groups
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
