package logger

// ErrorEntry exposes errorEntry for tests.
type ErrorEntry = errorEntry

var (
	CollectErrorEntries = collectErrorEntries
	FormatErrorEntries  = formatErrorEntries
)
