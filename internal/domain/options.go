package domain

const (
	DefaultDelimiter   = ';'
	DefaultBatchSize   = 1000
	DefaultPreviewRows = 10
)

// ParserOptions configures a single parse. Columns is populated by the worker
// after schema detection so the streaming parse can type cell values; it is
// not part of the submission surface.
type ParserOptions struct {
	Delimiter   rune
	HasHeader   bool
	SkipRows    int
	BatchSize   int
	SheetName   string
	PreviewRows int
	Columns     []Column
}

func DefaultParserOptions() ParserOptions {
	return ParserOptions{
		Delimiter:   DefaultDelimiter,
		BatchSize:   DefaultBatchSize,
		PreviewRows: DefaultPreviewRows,
	}
}

// Normalized returns a copy with zero-valued fields replaced by defaults.
func (o ParserOptions) Normalized() ParserOptions {
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.PreviewRows <= 0 {
		o.PreviewRows = DefaultPreviewRows
	}
	if o.SkipRows < 0 {
		o.SkipRows = 0
	}

	return o
}
