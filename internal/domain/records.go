package domain

// PageID is a wiki page id. Ids come from unsigned digit runs, so they are never negative.
type PageID = uint64

// PageRecord is one namespace-0 row of the page table.
type PageRecord struct {
	ID    PageID
	Title string
}

// LinkRecord is one namespace-0 row of the pagelinks table.
type LinkRecord struct {
	SourceID PageID
	TargetID PageID
}

// ResolvedEdge is a link whose endpoints both resolved to titles.
type ResolvedEdge struct {
	SourceTitle string
	TargetTitle string
}
