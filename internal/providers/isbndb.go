package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/IyadElwy/AiBookSummarizer/internal/services"
)

// Plan is an ISBNdb subscription tier.
type Plan string

const (
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
	PlanPro     Plan = "pro"
)

// BaseURL returns the API host for the plan.
func (p Plan) BaseURL() string {
	switch p {
	case PlanPremium:
		return "https://api.premium.isbndb.com"
	case PlanPro:
		return "https://api.pro.isbndb.com"
	default:
		return "https://api2.isbndb.com"
	}
}

// Interval is the minimum spacing between requests the plan allows.
func (p Plan) Interval() time.Duration {
	switch p {
	case PlanPremium:
		return 330 * time.Millisecond
	case PlanPro:
		return 200 * time.Millisecond
	default:
		return time.Second
	}
}

// isbndbDocsURL is recorded as the source URL since the API has no public page per book.
const isbndbDocsURL = "https://isbndb.com/isbndb-api-documentation-v2"

var htmlTag = regexp.MustCompile(`<[^>]+>`)

type isbndbBook struct {
	Title         string   `json:"title"`
	TitleLong     string   `json:"title_long"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	DatePublished string   `json:"date_published"`
	Edition       string   `json:"edition"`
	Pages         int      `json:"pages"`
	Binding       string   `json:"binding"`
	Language      string   `json:"language"`
	ISBN          string   `json:"isbn"`
	ISBN13        string   `json:"isbn13"`
	DeweyDecimal  []string `json:"dewey_decimal"`
	Subjects      []string `json:"subjects"`
	Synopsis      string   `json:"synopsis"`
	Overview      string   `json:"overview"`
	Excerpt       string   `json:"excerpt"`
	OtherISBNs    []struct {
		ISBN    string `json:"isbn"`
		Binding string `json:"binding"`
	} `json:"other_isbns"`
}

// ISBNdb looks books up through the ISBNdb REST API.
type ISBNdb struct {
	http     *httpClient
	apiKey   string
	baseURL  string
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

var _ Provider = (*ISBNdb)(nil)

// NewISBNdb builds the adapter. An empty baseURL selects the plan's host.
// A missing apiKey is reported as a configuration failure on each Fetch.
func NewISBNdb(apiKey string, plan Plan, baseURL string, opts ...Option) *ISBNdb {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = plan.BaseURL()
	}
	p := &ISBNdb{
		http:     newHTTPClient(opts),
		apiKey:   strings.TrimSpace(apiKey),
		baseURL:  baseURL,
		interval: plan.Interval(),
	}
	p.http.headers.Set("Authorization", p.apiKey)
	return p
}

func (p *ISBNdb) Kind() Kind { return KindISBNdb }

func (p *ISBNdb) TitleDependent() bool { return false }

// Fetch requests /book/{isbn}. A 404 is empty.
func (p *ISBNdb) Fetch(ctx context.Context, q Query) Result {
	if p.apiKey == "" {
		return Failed(KindISBNdb, services.Wrap(services.ErrConfiguration, string(KindISBNdb), "fetch", "isbndb api key not set", nil))
	}
	if err := p.wait(ctx); err != nil {
		return Failed(KindISBNdb, services.Wrap(services.ErrTimeout, string(KindISBNdb), "rate limit", "", err))
	}

	var payload struct {
		Book *isbndbBook `json:"book"`
	}
	endpoint := fmt.Sprintf("%s/book/%s", p.baseURL, url.PathEscape(q.ISBN))
	err := p.http.getJSON(ctx, KindISBNdb, endpoint, &payload)
	if errors.Is(err, errNotFound) {
		return Empty(KindISBNdb, "isbn not found")
	}
	if err != nil {
		return Failed(KindISBNdb, err)
	}
	if payload.Book == nil {
		return Empty(KindISBNdb, "no book in response")
	}
	book := payload.Book
	return Found(KindISBNdb, isbndbDocsURL, formatISBNdb(book), book.Title, book.Authors)
}

// wait blocks until the plan's request spacing has elapsed.
func (p *ISBNdb) wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if delay := p.interval - time.Since(p.last); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}

func formatISBNdb(book *isbndbBook) string {
	var s sections

	title := strings.TrimSpace(book.Title)
	if title == "" {
		title = "Unknown Title"
	}
	if long := strings.TrimSpace(book.TitleLong); long != "" && long != title {
		s.add("Title", fmt.Sprintf("%s (%s)", title, long))
	} else {
		s.add("Title", title)
	}
	s.addList("Author(s)", book.Authors)

	s.addJoined("", " | ", []string{
		labelled("Publisher", book.Publisher),
		labelled("Published", book.DatePublished),
		labelled("Edition", book.Edition),
	})
	pages := ""
	if book.Pages > 0 {
		pages = fmt.Sprint(book.Pages)
	}
	s.addJoined("", " | ", []string{
		labelled("Pages", pages),
		labelled("Binding", book.Binding),
		labelled("Language", book.Language),
	})
	s.addJoined("", " | ", []string{
		labelled("ISBN", book.ISBN),
		labelled("ISBN-13", book.ISBN13),
	})
	s.addList("Dewey Decimal", book.DeweyDecimal)
	s.addList("Subjects", cleanSubjects(book.Subjects, 5))

	description := firstNonEmpty(book.Synopsis, book.Overview, book.Excerpt)
	if description != "" {
		s.add("Description", cleanSpace(htmlTag.ReplaceAllString(description, " ")))
	}

	var editions []string
	for _, other := range book.OtherISBNs {
		if len(editions) == 3 {
			break
		}
		if other.ISBN == "" {
			continue
		}
		entry := other.ISBN
		if other.Binding != "" {
			entry += " (" + other.Binding + ")"
		}
		editions = append(editions, entry)
	}
	s.addList("Other Editions", editions)

	return s.join("\n")
}

func cleanSubjects(subjects []string, limit int) []string {
	caser := cases.Title(language.English)
	var out []string
	for i, subject := range subjects {
		if i == limit {
			break
		}
		clean := caser.String(strings.ReplaceAll(subject, "_", " "))
		clean = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(clean, "Fiction ", ""), "General", ""))
		if clean != "" && !contains(out, clean) {
			out = append(out, clean)
		}
	}
	return out
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
