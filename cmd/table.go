package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
	"github.com/lehigh-university-libraries/snapcatalog/internal/storage"
	"github.com/lehigh-university-libraries/snapcatalog/internal/summary"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render() + "\n"
}

func formatLabels(labels []models.Label) string {
	parts := make([]string, len(labels))
	for i, label := range labels {
		if label.Value == 0 {
			parts[i] = label.Name
			continue
		}
		parts[i] = fmt.Sprintf("%s (%s)", label.Name, strconv.FormatFloat(label.Value, 'f', -1, 64))
	}
	return strings.Join(parts, ", ")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func buildCatalogRows(items []storage.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.Entry.Key,
			formatLabels(item.Entry.Labels),
			string(item.Sync),
			yesNo(item.BlobStored),
		})
	}
	return rows
}

func renderCatalog(items []storage.Item) string {
	return renderTable(
		[]string{"#", "Key", "Labels", "Sync", "Blob"},
		buildCatalogRows(items),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func buildSummaryRows(s summary.Summary) [][]string {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
	rows := [][]string{
		{"Entries", strconv.Itoa(s.Total)},
		{"Fallback labels", strconv.Itoa(s.Fallback)},
		{"Missing blobs", strconv.Itoa(s.MissingBlobs)},
		{"Sync pending", strconv.Itoa(s.PendingSync)},
		{"Sync failed", strconv.Itoa(s.FailedSync)},
	}
	if s.Value.Count > 0 {
		rows = append(rows,
			[]string{"Calories mean", format(s.Value.Mean)},
			[]string{"Calories median", format(s.Value.Median)},
			[]string{"Calories min", format(s.Value.Min)},
			[]string{"Calories max", format(s.Value.Max)},
		)
	}
	return rows
}

func renderSummary(s summary.Summary) string {
	out := renderTable([]string{"Metric", "Value"}, buildSummaryRows(s), []columnAlignment{alignLeft, alignRight})

	top := s.TopLabels(10)
	if len(top) == 0 {
		return out
	}
	rows := make([][]string, 0, len(top))
	for _, lc := range top {
		rows = append(rows, []string{lc.Name, strconv.Itoa(lc.Count)})
	}
	return out + renderTable([]string{"Label", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
