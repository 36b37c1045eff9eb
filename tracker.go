package relational

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/ojpb/relational/model"
)

// FullKey is the sentinel history key for the theoretical benchmark record
// (performance with the entire train split labelled).
const FullKey = "full"

// ProvenanceInit is the provenance tag applied to the initially labelled
// indices at construction time.
const ProvenanceInit = "Initialisation"

// tracker accumulates performance records and labelling provenance for the
// lifetime of one engine. Records are append-only; the loop never touches
// the full-benchmark record.
type tracker struct {
	iterations map[int]model.Record
	full       model.Record
	labelledBy map[int]string
}

func newTracker() *tracker {
	return &tracker{
		iterations: make(map[int]model.Record),
		labelledBy: make(map[int]string),
	}
}

func (t *tracker) recordIteration(iteration int, r model.Record) {
	t.iterations[iteration] = r
}

func (t *tracker) recordFull(r model.Record) {
	t.full = r
}

func (t *tracker) logLabelledBy(indices []int, tag string) {
	for _, i := range indices {
		t.labelledBy[i] = tag
	}
}

// performances returns a copy of every record, keyed by the iteration
// number as a string, plus FullKey when the benchmark was measured.
func (t *tracker) performances() map[string]model.Record {
	out := make(map[string]model.Record, len(t.iterations)+1)
	for iteration, r := range t.iterations {
		out[fmt.Sprintf("%d", iteration)] = r.Clone()
	}
	if t.full != nil {
		out[FullKey] = t.full.Clone()
	}
	return out
}

// columns determines the metric column set: the full record anchors the
// table shape when present, else the record at the given latest iteration.
func (t *tracker) columns(latest int) []string {
	var source model.Record
	switch {
	case t.full != nil:
		source = t.full
	default:
		source = t.iterations[latest]
	}

	cols := slices.Collect(maps.Keys(source))
	sort.Strings(cols)
	return cols
}

// Table is the ordered, named-column view of the performance history.
// The first column is always "Iteration"; the remaining cells hold metric
// values (NaN for undefined metrics).
type Table struct {
	Columns []string
	Rows    [][]float64
}

// String renders the table in pipe format.
func (t *Table) String() string {
	var b strings.Builder

	b.WriteString("|")
	for _, c := range t.Columns {
		fmt.Fprintf(&b, " %s |", c)
	}
	b.WriteString("\n|")
	for _, c := range t.Columns {
		b.WriteString(strings.Repeat("-", len(c)+1))
		b.WriteString(":|")
	}
	for _, row := range t.Rows {
		b.WriteString("\n|")
		for i, v := range row {
			if i == 0 {
				fmt.Fprintf(&b, " %d |", int(v))
				continue
			}
			fmt.Fprintf(&b, " %g |", v)
		}
	}

	return b.String()
}

// history builds the tabular view: one row per recorded iteration in
// ascending order, excluding the full-benchmark record.
func (t *tracker) history(latest int) *Table {
	iterations := slices.Collect(maps.Keys(t.iterations))
	sort.Ints(iterations)

	metricCols := t.columns(latest)
	table := &Table{
		Columns: append([]string{"Iteration"}, metricCols...),
		Rows:    make([][]float64, 0, len(iterations)),
	}

	for _, iteration := range iterations {
		row := make([]float64, 0, len(table.Columns))
		row = append(row, float64(iteration))
		for _, c := range metricCols {
			v, ok := t.iterations[iteration][c]
			if !ok {
				v = math.NaN()
			}
			row = append(row, v)
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}
