package core

// Storage and naming limits.
const (
	MaxTables          = 100
	MaxRecordsPerTable = 1000
	MaxColumnsPerTable = 10
	MaxTableLen        = 20
	MaxColNameLen      = 20
	MaxKeyLen          = 20
	MaxStrTypeSize     = 40
	MaxValueLen        = 800
)
