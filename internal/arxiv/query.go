package arxiv

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SortBy selects the ordering of search results.
type SortBy string

const (
	SortRelevance   SortBy = "relevance"
	SortLastUpdated SortBy = "lastUpdatedDate"
	SortSubmitted   SortBy = "submittedDate"
)

// DateLayout is the accepted layout for Query.DateFrom and Query.DateTo.
const DateLayout = "2006-01-02"

var (
	ErrEmptyQuery = errors.New("search query is empty")

	// fieldPrefix matches arXiv's search field syntax, e.g. "ti:" or "au:".
	fieldPrefix = regexp.MustCompile(`(^|[\s(])(ti|au|abs|co|jr|cat|rn|id|all):`)
)

// Query describes a search_query request.
type Query struct {
	// Text is free text. Text already using arXiv field syntax ("au:hinton AND ti:capsule")
	// is passed through unchanged; plain words are all required to match.
	Text string

	Categories []string

	// DateFrom and DateTo bound the submission date (YYYY-MM-DD, inclusive).
	// Either may be empty.
	DateFrom string
	DateTo   string

	SortBy     SortBy
	MaxResults int
	Start      int
}

// SearchQuery renders the search_query parameter.
func (q Query) SearchQuery() (string, error) {
	var parts []string

	if text := strings.TrimSpace(q.Text); text != "" {
		if fieldPrefix.MatchString(text) {
			parts = append(parts, "("+text+")")
		} else {
			var terms []string
			for _, w := range strings.Fields(text) {
				terms = append(terms, "all:"+w)
			}
			parts = append(parts, strings.Join(terms, " AND "))
		}
	}

	var cats []string
	for _, c := range q.Categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, "cat:"+c)
		}
	}
	switch len(cats) {
	case 0:
	case 1:
		parts = append(parts, cats[0])
	default:
		parts = append(parts, "("+strings.Join(cats, " OR ")+")")
	}

	if q.DateFrom != "" || q.DateTo != "" {
		from := time.Date(1991, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Now().UTC()
		var err error
		if q.DateFrom != "" {
			if from, err = time.Parse(DateLayout, q.DateFrom); err != nil {
				return "", fmt.Errorf("invalid date_from %q: expected YYYY-MM-DD", q.DateFrom)
			}
		}
		if q.DateTo != "" {
			if to, err = time.Parse(DateLayout, q.DateTo); err != nil {
				return "", fmt.Errorf("invalid date_to %q: expected YYYY-MM-DD", q.DateTo)
			}
		}
		if to.Before(from) {
			return "", fmt.Errorf("date_to %s is before date_from %s", to.Format(DateLayout), from.Format(DateLayout))
		}
		parts = append(parts, fmt.Sprintf("submittedDate:[%s0000 TO %s2359]", from.Format("20060102"), to.Format("20060102")))
	}

	if len(parts) == 0 {
		return "", ErrEmptyQuery
	}
	return strings.Join(parts, " AND "), nil
}

// Values renders the full set of query parameters.
func (q Query) Values() (url.Values, error) {
	sq, err := q.SearchQuery()
	if err != nil {
		return nil, err
	}

	sortBy := q.SortBy
	switch sortBy {
	case "":
		sortBy = SortRelevance
	case SortRelevance, SortLastUpdated, SortSubmitted:
	default:
		return nil, fmt.Errorf("invalid sort_by %q: must be relevance, lastUpdatedDate or submittedDate", sortBy)
	}

	v := url.Values{}
	v.Set("search_query", sq)
	v.Set("sortBy", string(sortBy))
	v.Set("sortOrder", "descending")
	if q.Start > 0 {
		v.Set("start", strconv.Itoa(q.Start))
	}
	if q.MaxResults > 0 {
		v.Set("max_results", strconv.Itoa(q.MaxResults))
	}
	return v, nil
}
