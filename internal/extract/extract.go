// Package extract pulls page and pagelinks tuples out of bulk-insert SQL dump
// text. Matching is lexical: each line is scanned with a compiled tuple
// pattern and anything that does not fit the pattern is skipped.
package extract

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/wikigraph-backend/internal/domain"
)

var (
	// (<id>,0,'<title>'  -- the title match is lazy and stops at the first quote.
	pageTuple = regexp.MustCompile(`\((\d+),0,'(.*?)'`)
	// (<source>,0,<target>)
	linkTuple = regexp.MustCompile(`\((\d+),0,(\d+)\)`)
)

const insertPrefix = "INSERT INTO"

// Stats summarises one extraction pass.
type Stats struct {
	Lines     int64
	Matched   int64
	Anomalies int64
}

// lineReader yields dump lines of arbitrary length. Pagelinks statements
// routinely exceed a megabyte per line, so bufio.Scanner's token limit is
// avoided in favour of ReadString.
type lineReader struct {
	r   *bufio.Reader
	err error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 1<<20)}
}

func (lr *lineReader) next() (string, error) {
	if lr.err != nil {
		return "", lr.err
	}
	line, err := lr.r.ReadString('\n')
	if err != nil {
		lr.err = err
		if err == io.EOF && line != "" {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

// matcher holds the per-line match window shared by both readers.
type matcher struct {
	lines   *lineReader
	pattern *regexp.Regexp
	pending [][]string
	stats   Stats
}

func (m *matcher) nextMatch() ([]string, error) {
	for len(m.pending) == 0 {
		line, err := m.lines.next()
		if err != nil {
			return nil, err
		}
		m.stats.Lines++
		m.pending = m.pattern.FindAllStringSubmatch(line, -1)
		if len(m.pending) == 0 && strings.HasPrefix(line, insertPrefix) {
			m.stats.Anomalies++
		}
	}
	match := m.pending[0]
	m.pending = m.pending[1:]
	return match, nil
}

// PageReader streams PageRecords from a page table dump.
type PageReader struct {
	m matcher
}

func NewPageReader(r io.Reader) *PageReader {
	return &PageReader{m: matcher{lines: newLineReader(r), pattern: pageTuple}}
}

// Next returns the next namespace-0 page, or io.EOF when the input is exhausted.
func (pr *PageReader) Next() (domain.PageRecord, error) {
	for {
		match, err := pr.m.nextMatch()
		if err != nil {
			return domain.PageRecord{}, err
		}
		id, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			pr.m.stats.Anomalies++
			continue
		}
		pr.m.stats.Matched++
		return domain.PageRecord{ID: id, Title: NormalizeTitle(match[2])}, nil
	}
}

func (pr *PageReader) Stats() Stats { return pr.m.stats }

// LinkReader streams LinkRecords from a pagelinks table dump.
type LinkReader struct {
	m matcher
}

func NewLinkReader(r io.Reader) *LinkReader {
	return &LinkReader{m: matcher{lines: newLineReader(r), pattern: linkTuple}}
}

// Next returns the next namespace-0 link, or io.EOF when the input is exhausted.
func (lr *LinkReader) Next() (domain.LinkRecord, error) {
	for {
		match, err := lr.m.nextMatch()
		if err != nil {
			return domain.LinkRecord{}, err
		}
		src, srcErr := strconv.ParseUint(match[1], 10, 64)
		dst, dstErr := strconv.ParseUint(match[2], 10, 64)
		if srcErr != nil || dstErr != nil {
			lr.m.stats.Anomalies++
			continue
		}
		lr.m.stats.Matched++
		return domain.LinkRecord{SourceID: src, TargetID: dst}, nil
	}
}

func (lr *LinkReader) Stats() Stats { return lr.m.stats }

// NormalizeTitle turns a dump title into its display form.
func NormalizeTitle(raw string) string {
	return strings.ReplaceAll(raw, "_", " ")
}
