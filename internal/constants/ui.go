package constants

// HeaderSeparatorLength is the length of the header separator line.
const HeaderSeparatorLength = 50

// MaxCellLength is the maximum number of characters shown in a table cell
// before it gets truncated.
const MaxCellLength = 40

// DefaultBlockIndent is the indentation used per nesting level when rendering blocks.
const DefaultBlockIndent = "  "
