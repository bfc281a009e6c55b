package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxGoodreadsReviews = 10
	maxReviewTextOnly   = 8
	minReviewChars      = 30
	maxReviewChars      = 300
)

var (
	reviewContainerSelectors = []string{
		`article[data-testid="review"]`,
		".ReviewsList .review",
		".review",
		`[data-testid="review"]`,
		".friendReviews .review",
	}
	reviewTextSelectors = []string{
		".ReviewText .Formatted",
		".reviewText .readable",
		`[data-testid="review-text"]`,
		".review-text",
		".Formatted",
	}
	reviewerSelectors = []string{
		`[data-testid="name"]`,
		".user a",
		".reviewer a",
		`a[href*="/user/show/"]`,
	}
	reviewRatingSelectors = []string{
		".staticStars",
		`[data-testid="rating"]`,
		`[title*="it was"]`,
		`[aria-label*="star"]`,
	}
)

var (
	trailingToggle = regexp.MustCompile(`\((less|more)\)$`)
	pagesPattern   = regexp.MustCompile(`(\d+)\s+pages`)
	digitsPattern  = regexp.MustCompile(`\d+`)
)

// Goodreads searches by title (plus first author when known) and scrapes the
// first matching book page. It needs a title, so it runs after the
// ISBN-based providers.
type Goodreads struct {
	http    *httpClient
	baseURL string
}

var _ Provider = (*Goodreads)(nil)

// NewGoodreads builds the adapter for baseURL (normally https://www.goodreads.com).
func NewGoodreads(baseURL string, opts ...Option) *Goodreads {
	return &Goodreads{
		http:    newHTTPClient(opts),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

func (p *Goodreads) Kind() Kind { return KindGoodreads }

func (p *Goodreads) TitleDependent() bool { return true }

func (p *Goodreads) Fetch(ctx context.Context, q Query) Result {
	title := strings.TrimSpace(q.Title)
	if title == "" {
		return Empty(KindGoodreads, "no title")
	}

	bookURL, err := p.search(ctx, title, strings.TrimSpace(q.Author))
	if errors.Is(err, errNotFound) {
		return Empty(KindGoodreads, "search not found")
	}
	if err != nil {
		return Failed(KindGoodreads, err)
	}
	if bookURL == "" {
		return Empty(KindGoodreads, "no search results")
	}

	doc, err := p.http.getDocument(ctx, KindGoodreads, bookURL)
	if errors.Is(err, errNotFound) {
		return Empty(KindGoodreads, "book page not found")
	}
	if err != nil {
		return Failed(KindGoodreads, err)
	}
	book := extractGoodreadsBook(doc)
	var authors []string
	if book.author != "" {
		authors = []string{book.author}
	}
	return Found(KindGoodreads, bookURL, book.format(), book.title, authors)
}

// search returns the URL of the best match: the first result whose title and
// author overlap the query, else the first result.
func (p *Goodreads) search(ctx context.Context, title, author string) (string, error) {
	query := title
	if author != "" {
		query = title + " " + author
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("search_type", "books")
	doc, err := p.http.getDocument(ctx, KindGoodreads, p.baseURL+"/search?"+params.Encode())
	if err != nil {
		return "", err
	}

	rows := doc.Find(`tr[itemtype="http://schema.org/Book"]`)
	if rows.Length() == 0 {
		rows = doc.Find(".tableList tr")
	}
	wantTitle, wantAuthor := strings.ToLower(title), strings.ToLower(author)
	var match string
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		link := row.Find("a.bookTitle").First()
		if link.Length() == 0 {
			return true
		}
		gotTitle := strings.ToLower(cleanSpace(link.Text()))
		if gotTitle == "" {
			return true
		}
		gotAuthor := strings.ToLower(cleanSpace(row.Find("a.authorName").First().Text()))
		titleMatch := strings.Contains(gotTitle, wantTitle) || strings.Contains(wantTitle, gotTitle)
		authorMatch := wantAuthor == "" || strings.Contains(gotAuthor, wantAuthor) || strings.Contains(wantAuthor, gotAuthor)
		if titleMatch && authorMatch {
			if href, ok := link.Attr("href"); ok && strings.TrimSpace(href) != "" {
				match = resolveURL(p.baseURL, href)
				return false
			}
		}
		return true
	})
	if match != "" {
		return match, nil
	}
	if href, ok := doc.Find("a.bookTitle").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		return resolveURL(p.baseURL, href), nil
	}
	return "", nil
}

type goodreadsBook struct {
	title        string
	author       string
	series       string
	rating       string
	ratingCount  string
	reviewsCount string
	year         string
	pages        string
	publisher    string
	description  string
	genres       []string
	awards       []string
	isbn         string
	reviews      []goodreadsReview
}

type goodreadsReview struct {
	reviewer string
	rating   string
	text     string
}

func extractGoodreadsBook(doc *goquery.Document) goodreadsBook {
	b := goodreadsBook{
		title:        firstText(doc, `h1[data-testid="bookTitle"]`, "h1.Text.Text__title1"),
		author:       firstText(doc, `span[data-testid="name"]`, "a.authorName", ".ContributorLink__name"),
		series:       firstText(doc, "h3.Text.Text__title3"),
		rating:       firstText(doc, "div.RatingStatistics__rating", `span[itemprop="ratingValue"]`),
		ratingCount:  firstText(doc, `span[data-testid="ratingsCount"]`),
		reviewsCount: firstText(doc, `span[data-testid="reviewsCount"]`),
		publisher:    firstText(doc, `span[itemprop="publisher"]`),
		isbn:         firstText(doc, `span[itemprop="isbn"]`),
	}
	b.ratingCount = strings.TrimSpace(strings.TrimSuffix(b.ratingCount, "ratings"))
	b.reviewsCount = strings.TrimSpace(strings.TrimSuffix(b.reviewsCount, "reviews"))
	if b.ratingCount == "" {
		if count, ok := doc.Find(`meta[itemprop="ratingCount"]`).First().Attr("content"); ok {
			b.ratingCount = strings.TrimSpace(count)
		}
	}
	for _, sel := range []string{
		`[data-testid="description"] .Formatted`,
		".BookPageMetadataSection__description .Formatted",
		".DetailsLayoutRightParagraph__description",
		`#description span[style*="display:none"]`,
		"#description span",
	} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			b.description = strings.TrimSpace(trailingToggle.ReplaceAllString(cleanSpace(node.Text()), ""))
			break
		}
	}

	if details := doc.Find("div.FeaturedDetails").First(); details.Length() > 0 {
		text := details.Text()
		b.year = yearPattern.FindString(text)
		if m := pagesPattern.FindStringSubmatch(text); m != nil {
			b.pages = m[1]
		}
	}
	if b.year == "" {
		b.year = yearPattern.FindString(doc.Find(`p[data-testid="publicationInfo"]`).First().Text())
	}
	if b.pages == "" {
		b.pages = digitsPattern.FindString(doc.Find(`p[data-testid="pagesFormat"]`).First().Text())
	}

	for _, sel := range []string{
		`[data-testid="genresList"] .Button--tag`,
		".BookPageMetadataSection__genres .Button",
		".elementList .left .bookPageGenreLink",
	} {
		if b.genres = collectTexts(doc.Find(sel), 15); len(b.genres) > 0 {
			break
		}
	}
	b.awards = collectTexts(doc.Find(`.infoBoxRowItem a[href*="/award/"]`), 5)
	b.reviews = extractGoodreadsReviews(doc)
	return b
}

// extractGoodreadsReviews reads review cards when the page has them and
// falls back to bare review texts attributed to numbered readers.
func extractGoodreadsReviews(doc *goquery.Document) []goodreadsReview {
	var cards *goquery.Selection
	for _, sel := range reviewContainerSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return extractBareReviewTexts(doc)
	}

	var out []goodreadsReview
	seen := map[string]struct{}{}
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= maxGoodreadsReviews {
			return false
		}
		text := cleanReviewText(firstTextIn(card, reviewTextSelectors...))
		if len([]rune(text)) <= minReviewChars {
			return true
		}
		reviewer := firstTextIn(card, reviewerSelectors...)
		if reviewer == "" {
			reviewer = "Anonymous"
		}
		key := reviewer + ":" + truncateRunes(text, 50, "")
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		out = append(out, goodreadsReview{reviewer: reviewer, rating: reviewRating(card), text: text})
		return true
	})
	return out
}

func extractBareReviewTexts(doc *goquery.Document) []goodreadsReview {
	for _, sel := range reviewTextSelectors[:4] {
		nodes := doc.Find(sel)
		if nodes.Length() == 0 {
			continue
		}
		var out []goodreadsReview
		nodes.Slice(0, min(nodes.Length(), maxReviewTextOnly)).Each(func(i int, node *goquery.Selection) {
			if text := cleanReviewText(node.Text()); len([]rune(text)) > minReviewChars {
				out = append(out, goodreadsReview{reviewer: fmt.Sprintf("Reader %d", i+1), text: text})
			}
		})
		return out
	}
	return nil
}

// reviewRating pulls the star count out of a title or aria-label such as
// "Rating 4 out of 5".
func reviewRating(card *goquery.Selection) string {
	for _, sel := range reviewRatingSelectors {
		node := card.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, attr := range []string{"title", "aria-label"} {
			if value, ok := node.Attr(attr); ok {
				if digits := digitsPattern.FindString(value); digits != "" {
					return digits
				}
			}
		}
	}
	return ""
}

func cleanReviewText(s string) string {
	s = cleanSpace(s)
	s = strings.ReplaceAll(s, "...more", "")
	return strings.TrimSpace(trailingToggle.ReplaceAllString(s, ""))
}

func truncateRunes(s string, n int, suffix string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-len([]rune(suffix))]) + suffix
}

func (b goodreadsBook) format() string {
	var s sections
	s.add("Title", b.title)
	s.add("Author", b.author)
	s.add("Series", b.series)

	var rating []string
	if b.rating != "" {
		rating = append(rating, "Rating: "+b.rating)
	}
	if b.ratingCount != "" {
		rating = append(rating, "("+b.ratingCount+" ratings)")
	}
	if b.reviewsCount != "" {
		rating = append(rating, "("+b.reviewsCount+" reviews)")
	}
	s.addJoined("", " ", rating)

	s.addJoined("Publication Details", ", ", []string{
		labelled("Published", b.year),
		labelled("Pages", b.pages),
		labelled("Publisher", b.publisher),
	})
	s.add("Description", b.description)
	s.addList("Genres", b.genres)
	s.addList("Awards", b.awards)
	s.add("ISBN", b.isbn)
	if len(b.reviews) > 0 {
		lines := []string{"User Reviews:"}
		for i, r := range b.reviews {
			line := fmt.Sprintf("%d. %s", i+1, r.reviewer)
			if r.rating != "" {
				line += " (" + r.rating + "/5 stars)"
			}
			lines = append(lines, line+": "+truncateRunes(r.text, maxReviewChars, "..."))
		}
		s = append(s, strings.Join(lines, "\n"))
	}
	return s.join("\n\n")
}
