package export

// Table is ordered tabular content ready for rendering.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}
