package export

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// SummaryLine is a labelled value printed above the table.
type SummaryLine struct {
	Label string
	Value string
}

// Report is a titled document made of summary lines followed by one table.
type Report struct {
	Title   string
	Summary []SummaryLine
	Table   Dataset
}

// Renderer turns a report into file bytes.
type Renderer interface {
	Render(report Report) ([]byte, error)
	ContentType() string
	Extension() string
}
