package model

// Pagination limits for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPageNumber   = 1_000_000
)

// Page selects a 1-based page of a list.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page number to [1, MaxPageNumber] and the size to [1, MaxPageSize].
// A zero size falls back to DefaultPageSize.
func (p Page) Normalize() Page {
	switch {
	case p.Number < 1:
		p.Number = 1
	case p.Number > MaxPageNumber:
		p.Number = MaxPageNumber
	}
	switch {
	case p.Size == 0:
		p.Size = DefaultPageSize
	case p.Size < 1:
		p.Size = 1
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip for this page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Size
}
