package providers

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	yearPattern      = regexp.MustCompile(`\d{4}`)
	backCoverPattern = regexp.MustCompile(`(?is)\(back cover\).*$`)
)

// OpenLibrary resolves an ISBN to a work through search.json and scrapes the
// work page.
type OpenLibrary struct {
	http    *httpClient
	baseURL string
}

var _ Provider = (*OpenLibrary)(nil)

// NewOpenLibrary builds the adapter for baseURL (normally https://openlibrary.org).
func NewOpenLibrary(baseURL string, opts ...Option) *OpenLibrary {
	return &OpenLibrary{
		http:    newHTTPClient(opts),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

func (p *OpenLibrary) Kind() Kind { return KindOpenLibrary }

func (p *OpenLibrary) TitleDependent() bool { return false }

func (p *OpenLibrary) Fetch(ctx context.Context, q Query) Result {
	var search struct {
		Docs []struct {
			Key string `json:"key"`
		} `json:"docs"`
	}
	params := url.Values{}
	params.Set("q", q.ISBN)
	err := p.http.getJSON(ctx, KindOpenLibrary, p.baseURL+"/search.json?"+params.Encode(), &search)
	if errors.Is(err, errNotFound) {
		return Empty(KindOpenLibrary, "search not found")
	}
	if err != nil {
		return Failed(KindOpenLibrary, err)
	}
	if len(search.Docs) == 0 || strings.TrimSpace(search.Docs[0].Key) == "" {
		return Empty(KindOpenLibrary, "no search results")
	}

	key := strings.TrimSpace(search.Docs[0].Key)
	if !strings.HasPrefix(key, "/works/") {
		key = "/works/" + strings.TrimPrefix(key, "/")
	}
	pageURL := p.baseURL + key

	doc, err := p.http.getDocument(ctx, KindOpenLibrary, pageURL)
	if errors.Is(err, errNotFound) {
		return Empty(KindOpenLibrary, "work page not found")
	}
	if err != nil {
		return Failed(KindOpenLibrary, err)
	}

	work := extractOpenLibraryWork(doc)
	var authors []string
	if work.author != "" {
		authors = []string{work.author}
	}
	return Found(KindOpenLibrary, pageURL, work.format(), work.title, authors)
}

type openLibraryWork struct {
	title       string
	author      string
	description string
	rating      string
	ratingCount string
	firstYear   string
	subjects    []string
	characters  []string
	places      []string
	times       []string
	excerpt     string
	publisher   string
	pages       string
	language    string
}

func extractOpenLibraryWork(doc *goquery.Document) openLibraryWork {
	w := openLibraryWork{
		title:  firstText(doc, "h1.work-title"),
		author: firstText(doc, `a[href*="/authors/"]`),
		rating: firstText(doc, `span[itemprop="ratingValue"]`),
	}
	for _, sel := range []string{
		".book-description .read-more__content",
		".work-description .read-more__content",
		".book-description",
		".work-description",
	} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			w.description = strings.TrimSpace(backCoverPattern.ReplaceAllString(cleanSpace(node.Text()), ""))
			break
		}
	}
	if count, ok := doc.Find(`meta[itemprop="ratingCount"]`).First().Attr("content"); ok {
		w.ratingCount = strings.TrimSpace(count)
	}
	if title, ok := doc.Find("span.first-published-date").First().Attr("title"); ok {
		w.firstYear = yearPattern.FindString(title)
	}
	w.subjects = collectTexts(doc.Find(`.subjects a[href*="/subjects/"]`), 20)
	w.characters = collectTexts(doc.Find(`a[href*="/subjects/person:"]`), 0)
	w.places = collectTexts(doc.Find(`a[href*="/subjects/place:"]`), 0)
	w.times = collectTexts(doc.Find(`a[href*="/subjects/time:"]`), 0)
	w.excerpt = firstText(doc, ".excerpt .text")
	w.publisher = firstText(doc, `a[itemprop="publisher"]`)
	w.pages = firstText(doc, `span[itemprop="numberOfPages"]`)
	if lang := doc.Find(`span[itemprop="inLanguage"]`).First(); lang.Length() > 0 {
		if link := lang.Find("a").First(); link.Length() > 0 {
			w.language = cleanSpace(link.Text())
		} else {
			w.language = cleanSpace(lang.Text())
		}
	}
	return w
}

func (w openLibraryWork) format() string {
	var s sections
	s.add("Title", w.title)
	s.add("Author", w.author)
	s.add("First Published", w.firstYear)
	s.add("Description", w.description)
	if w.rating != "" && w.ratingCount != "" {
		s.add("Rating", w.rating+" ("+w.ratingCount+" ratings)")
	}
	s.addList("Subjects/Themes", w.subjects)
	s.addList("Main Characters", w.characters)
	s.addList("Setting/Places", w.places)
	s.addList("Time Period", w.times)
	s.add("Opening Line", w.excerpt)
	s.addJoined("Publication Details", ", ", []string{
		labelled("Publisher", w.publisher),
		labelled("Pages", w.pages),
		labelled("Language", w.language),
	})
	return s.join("\n\n")
}
