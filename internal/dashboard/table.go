package dashboard

// renderTable rebuilds a table from scratch, one row per record in input order.
func renderTable[T any](records []T, renderRow func(T) RowView) TableView {
	if len(records) == 0 {
		return TableView{EmptyVisible: true}
	}
	rows := make([]RowView, 0, len(records))
	for _, record := range records {
		rows = append(rows, renderRow(record))
	}
	return TableView{TableVisible: true, Rows: rows}
}

// EvaluateLimit reports whether a kind has reached the account ceiling.
func EvaluateLimit(count int, maxAllowed int) LimitView {
	limitReached := count >= maxAllowed
	return LimitView{
		Count:        count,
		MaxAllowed:   maxAllowed,
		LimitReached: limitReached,
		AddVisible:   !limitReached,
	}
}
