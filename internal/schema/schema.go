// Package schema derives one field→type mapping from a full record set.
package schema

import (
	"brightedge-go-etl/internal/classifier"
	"brightedge-go-etl/internal/models"
)

type Inferencer struct {
	cl *classifier.Classifier
}

func New() *Inferencer { return &Inferencer{cl: classifier.New()} }

// tally tracks which type tags a field's non-null values have produced.
type tally struct {
	seen    int
	boolean int
	number  int
	array   int
	date    int
}

func (t *tally) resolve() models.FieldType {
	switch {
	case t.seen == 0:
		return models.TypeNull
	case t.boolean == t.seen:
		return models.TypeBoolean
	case t.number == t.seen:
		return models.TypeNumber
	case t.array == t.seen:
		return models.TypeArray
	case t.date == t.seen:
		return models.TypeDatetime
	}
	return models.TypeString
}

// Infer returns the union of all record fields in order of first appearance.
// A field is boolean, number, array or datetime only if every non-null value
// agrees; anything mixed is string. Fields holding only nulls are null.
func (in *Inferencer) Infer(records []models.Record) *models.Schema {
	order := []string{}
	tallies := map[string]*tally{}
	for _, r := range records {
		if r.Fields == nil {
			continue
		}
		for p := r.Fields.Oldest(); p != nil; p = p.Next() {
			t, ok := tallies[p.Key]
			if !ok {
				t = &tally{}
				tallies[p.Key] = t
				order = append(order, p.Key)
			}
			switch in.cl.Value(p.Value) {
			case models.TypeNull:
				continue
			case models.TypeBoolean:
				t.boolean++
			case models.TypeNumber:
				t.number++
			case models.TypeArray:
				t.array++
			case models.TypeDatetime:
				t.date++
			}
			t.seen++
		}
	}

	s := models.NewSchema()
	for _, name := range order {
		s.Set(name, tallies[name].resolve())
	}
	return s
}
