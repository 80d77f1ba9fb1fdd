// Package normalize turns a record set into a table shaped by a schema.
package normalize

import "brightedge-go-etl/internal/models"

// Table emits one row per record, in record order, with every schema column
// present. Missing fields hold nil. Values are not coerced.
func Table(schema *models.Schema, records []models.Record) models.Table {
	cols := schema.Keys()
	t := models.Table{Columns: cols, Rows: make([]*models.Row, 0, len(records))}
	for _, r := range records {
		row := models.NewFields()
		for _, c := range cols {
			v, _ := r.Get(c)
			row.Set(c, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
