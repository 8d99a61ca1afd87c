package dataprocessing

// Canonical names of derived columns.
const (
	ColEfficiency     = "efficiency"
	ColOccurrences    = "occurrences"
	ColSellerVisits   = "seller_visits"
	ColMarketVisits   = "market_visits"
	ColTotalVisits    = "total_visits"
	ColDistinctTitles = "distinct_titles"
)

// Ratio divides numField of num by denField of den, joined on keys. Rows
// of num keep their order. A missing den row, a null operand or a zero
// denominator yields 0.
func Ratio(num, den *Table, keys []string, numField, denField, as string) (*Table, error) {
	if err := num.Require(append(append([]string(nil), keys...), numField)...); err != nil {
		return nil, withOperation(err, "ratio")
	}
	if err := den.Require(append(append([]string(nil), keys...), denField)...); err != nil {
		return nil, withOperation(err, "ratio")
	}

	lookup := make(map[string]Value, den.Len())
	for i := 0; i < den.Len(); i++ {
		k := rowKey(den, i, keys)
		if _, seen := lookup[k]; !seen {
			lookup[k] = den.Value(i, denField)
		}
	}

	cols := append(append([]string(nil), keys...), numField)
	if denField != numField {
		cols = append(cols, denField)
	}
	out, err := num.Select(cols...)
	if err != nil {
		return nil, err
	}
	if denField != numField {
		out = out.WithColumn(denField, func(r Row) Value {
			if v, ok := lookup[rowKey(num, r.Index(), keys)]; ok {
				return v
			}
			return Null()
		})
	}
	return out.WithColumn(as, func(r Row) Value {
		n, okN := r.Get(numField).Float()
		d, okD := lookup[rowKey(num, r.Index(), keys)].Float()
		return Number(safeDivide(n, d, okN && okD))
	}), nil
}

func safeDivide(n, d float64, ok bool) float64 {
	if !ok || d == 0 {
		return 0
	}
	return n / d
}

func rowKey(t *Table, i int, keys []string) string {
	k := ""
	for _, name := range keys {
		k += t.Value(i, name).key() + "\x1f"
	}
	return k
}

// OccurrenceEfficiency is total metric per key divided by the number of
// rows carrying that key, e.g. visits per listing for each OEM. Null keys
// are excluded.
func OccurrenceEfficiency(t *Table, key, metric string) (*Table, error) {
	if err := t.Require(key, metric); err != nil {
		return nil, withOperation(err, "occurrence efficiency")
	}
	rows := DropNullKeys(t, key)
	agg, err := Aggregate(rows, []string{key},
		Measure{Field: metric, Reducer: Sum, As: metric},
		Measure{Reducer: Count, As: ColOccurrences},
	)
	if err != nil {
		return nil, err
	}
	return Ratio(agg, agg, []string{key}, metric, ColOccurrences, ColEfficiency)
}

// SelfEfficiencyResult is an entity's total metric over its distinct items.
type SelfEfficiencyResult struct {
	Total    float64 `json:"total"`
	Distinct int     `json:"distinct"`
	Value    float64 `json:"efficiency"`
}

// SelfEfficiency computes sum(metric) / count_distinct(item) over t.
// Zero distinct items yields 0.
func SelfEfficiency(t *Table, metric, item string) (SelfEfficiencyResult, error) {
	if err := t.Require(metric, item); err != nil {
		return SelfEfficiencyResult{}, withOperation(err, "self efficiency")
	}
	agg, err := Aggregate(t, nil,
		Measure{Field: metric, Reducer: Sum, As: "total"},
		Measure{Field: item, Reducer: CountDistinct, As: "distinct"},
	)
	if err != nil {
		return SelfEfficiencyResult{}, err
	}
	var res SelfEfficiencyResult
	if agg.Len() == 0 {
		return res, nil
	}
	res.Total, _ = agg.Value(0, "total").Float()
	d, _ := agg.Value(0, "distinct").Float()
	res.Distinct = int(d)
	res.Value = safeDivide(res.Total, d, true)
	return res, nil
}

// ShareEfficiency divides the subset's per-key metric by the whole
// population's per-key metric. Keys absent from the population, or with a
// zero population total, yield 0.
func ShareEfficiency(subset, population *Table, key, metric string) (*Table, error) {
	if err := subset.Require(key, metric); err != nil {
		return nil, withOperation(err, "share efficiency")
	}
	if err := population.Require(key, metric); err != nil {
		return nil, withOperation(err, "share efficiency")
	}
	own, err := Aggregate(DropNullKeys(subset, key), []string{key}, Measure{Field: metric, Reducer: Sum, As: ColSellerVisits})
	if err != nil {
		return nil, err
	}
	total, err := Aggregate(DropNullKeys(population, key), []string{key}, Measure{Field: metric, Reducer: Sum, As: ColMarketVisits})
	if err != nil {
		return nil, err
	}
	return Ratio(own, total, []string{key}, ColSellerVisits, ColMarketVisits, ColEfficiency)
}
