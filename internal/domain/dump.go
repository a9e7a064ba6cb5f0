package domain

import "fmt"

// DumpKind names one of the two tables the pipeline consumes.
type DumpKind string

const (
	DumpKindPage      DumpKind = "page"
	DumpKindPagelinks DumpKind = "pagelinks"
)

// AllDumpKinds is the processing order: titles first, then links.
var AllDumpKinds = []DumpKind{DumpKindPage, DumpKindPagelinks}

func (k DumpKind) Valid() bool {
	return k == DumpKindPage || k == DumpKindPagelinks
}

// Keyword is the substring the locator searches for in the dump index.
func (k DumpKind) Keyword() string {
	return string(k) + ".sql.gz"
}

// CompressedName is the local file name of a fetched dump for the given date stamp.
func (k DumpKind) CompressedName(stamp string) string {
	return fmt.Sprintf("%s_%s.sql.gz", k, stamp)
}

// SQLName is the local file name of a decompressed dump for the given date stamp.
func (k DumpKind) SQLName(stamp string) string {
	return fmt.Sprintf("%s_%s.sql", k, stamp)
}

func (k DumpKind) CompressedGlob() string {
	return string(k) + "_*.sql.gz"
}

// SQLGlob matches every decompressed dump of this kind.
func (k DumpKind) SQLGlob() string {
	return string(k) + "_*.sql"
}

// DumpVersion is the opaque version token taken from a dump URL.
type DumpVersion = string

// LocatedDump is what a locator reports for one dump kind.
type LocatedDump struct {
	Kind    DumpKind
	URL     string
	Version DumpVersion
}
