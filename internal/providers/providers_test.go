package providers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IyadElwy/AiBookSummarizer/internal/providers"
	"github.com/IyadElwy/AiBookSummarizer/internal/services"
	"github.com/IyadElwy/AiBookSummarizer/internal/testsupport"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(data)
}

func TestISBNdbFetchFormatsBook(t *testing.T) {
	var gotAuth, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book/9780134685991" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"book":{
			"title":"Effective Java",
			"title_long":"Effective Java (3rd Edition)",
			"authors":["Joshua Bloch"],
			"publisher":"Addison-Wesley",
			"date_published":"2018",
			"pages":412,
			"binding":"Paperback",
			"isbn13":"9780134685991",
			"subjects":["computer_science","Programming_General"],
			"synopsis":"<p>The  definitive   guide</p>",
			"other_isbns":[{"isbn":"0134685997","binding":"Paperback"}]
		}}`))
	}))
	defer srv.Close()

	p := providers.NewISBNdb("secret", providers.PlanBasic, srv.URL, providers.WithUserAgent("booksum-test"))
	res := p.Fetch(context.Background(), providers.Query{ISBN: "9780134685991"})
	if res.Outcome != providers.OutcomeFound {
		t.Fatalf("expected found, got %s (%v)", res.Outcome, res.Err)
	}
	if gotAuth != "secret" {
		t.Fatalf("expected Authorization header, got %q", gotAuth)
	}
	if gotAgent != "booksum-test" {
		t.Fatalf("expected user agent, got %q", gotAgent)
	}
	if res.Title != "Effective Java" || len(res.Authors) != 1 || res.Authors[0] != "Joshua Bloch" {
		t.Fatalf("unexpected title/authors: %q %v", res.Title, res.Authors)
	}
	for _, want := range []string{
		"Title: Effective Java (Effective Java (3rd Edition))",
		"Author(s): Joshua Bloch",
		"Publisher: Addison-Wesley | Published: 2018",
		"Pages: 412 | Binding: Paperback",
		"ISBN-13: 9780134685991",
		"Subjects: Computer Science, Programming",
		"Description: The definitive guide",
		"Other Editions: 0134685997 (Paperback)",
	} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("expected text to contain %q, got:\n%s", want, res.Text)
		}
	}
}

func TestISBNdbNotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	res := providers.NewISBNdb("k", providers.PlanBasic, srv.URL).Fetch(context.Background(), providers.Query{ISBN: "0134685997"})
	if res.Outcome != providers.OutcomeEmpty {
		t.Fatalf("expected empty, got %s", res.Outcome)
	}
}

func TestISBNdbServerErrorIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := providers.NewISBNdb("k", providers.PlanBasic, srv.URL).Fetch(context.Background(), providers.Query{ISBN: "0134685997"})
	if res.Outcome != providers.OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, services.ErrExternal) {
		t.Fatalf("expected external error, got %v", res.Err)
	}
}

func TestISBNdbMissingKeyIsConfigurationFailure(t *testing.T) {
	res := providers.NewISBNdb("", providers.PlanBasic, "http://127.0.0.1:1").Fetch(context.Background(), providers.Query{ISBN: "0134685997"})
	if res.Outcome != providers.OutcomeFailed || !errors.Is(res.Err, services.ErrConfiguration) {
		t.Fatalf("expected configuration failure, got %s %v", res.Outcome, res.Err)
	}
}

func TestISBNdbSpacesRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	p := providers.NewISBNdb("k", providers.PlanPro, srv.URL)
	start := time.Now()
	for range 3 {
		p.Fetch(context.Background(), providers.Query{ISBN: "0134685997"})
	}
	if elapsed := time.Since(start); elapsed < 2*providers.PlanPro.Interval() {
		t.Fatalf("expected requests spaced by plan interval, took %v", elapsed)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestPlanEndpoints(t *testing.T) {
	if providers.PlanBasic.BaseURL() != "https://api2.isbndb.com" {
		t.Fatalf("unexpected basic url %s", providers.PlanBasic.BaseURL())
	}
	if providers.PlanPremium.BaseURL() != "https://api.premium.isbndb.com" {
		t.Fatalf("unexpected premium url %s", providers.PlanPremium.BaseURL())
	}
	if providers.PlanBasic.Interval() != time.Second {
		t.Fatalf("unexpected basic interval %v", providers.PlanBasic.Interval())
	}
}

func TestOpenLibraryFetchScrapesWorkPage(t *testing.T) {
	page := readFixture(t, "openlibrary_work.html")
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "9780134685991" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"docs":[{"key":"/works/OL123W"}]}`))
	})
	mux.HandleFunc("/works/OL123W", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res := providers.NewOpenLibrary(srv.URL).Fetch(context.Background(), providers.Query{ISBN: "9780134685991"})
	if res.Outcome != providers.OutcomeFound {
		t.Fatalf("expected found, got %s (%v)", res.Outcome, res.Err)
	}
	if res.URL != srv.URL+"/works/OL123W" {
		t.Fatalf("unexpected url %s", res.URL)
	}
	if res.Title != "Effective Java" {
		t.Fatalf("unexpected title %q", res.Title)
	}
	for _, want := range []string{
		"Title: Effective Java",
		"Author: Joshua Bloch",
		"First Published: 2001",
		"Description: The definitive guide to Java platform best practices.",
		"Rating: 4.4 (312 ratings)",
		"Subjects/Themes: Java, Programming",
		"Setting/Places: California",
		"Opening Line: Item 1: Consider static factory methods.",
		"Publication Details: Publisher: Addison-Wesley, Pages: 412, Language: English",
	} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("expected text to contain %q, got:\n%s", want, res.Text)
		}
	}
	if strings.Contains(res.Text, "back cover") {
		t.Fatalf("expected back cover suffix stripped: %s", res.Text)
	}
}

func TestOpenLibraryNoDocsIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))
	defer srv.Close()

	res := providers.NewOpenLibrary(srv.URL).Fetch(context.Background(), providers.Query{ISBN: "9780134685991"})
	if res.Outcome != providers.OutcomeEmpty {
		t.Fatalf("expected empty, got %s", res.Outcome)
	}
}

func TestOpenLibraryTimeoutIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := providers.NewOpenLibrary(srv.URL).Fetch(ctx, providers.Query{ISBN: "9780134685991"})
	if res.Outcome != providers.OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, services.ErrTimeout) {
		t.Fatalf("expected timeout classification, got %v", res.Err)
	}
}

func TestGoodreadsFetchPicksMatchingResult(t *testing.T) {
	search := readFixture(t, "goodreads_search.html")
	book := readFixture(t, "goodreads_book.html")
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(search))
	})
	mux.HandleFunc("/book/show/2-effective-java", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(book))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res := providers.NewGoodreads(srv.URL).Fetch(context.Background(), providers.Query{Title: "Effective Java", Author: "Joshua Bloch"})
	if res.Outcome != providers.OutcomeFound {
		t.Fatalf("expected found, got %s (%v)", res.Outcome, res.Err)
	}
	if gotQuery != "Effective Java Joshua Bloch" {
		t.Fatalf("unexpected search query %q", gotQuery)
	}
	if res.URL != srv.URL+"/book/show/2-effective-java" {
		t.Fatalf("unexpected url %s", res.URL)
	}
	for _, want := range []string{
		"Title: Effective Java",
		"Author: Joshua Bloch",
		"Rating: 4.51 (12,345 ratings) (678 reviews)",
		"Publication Details: Published: 2001, Pages: 412",
		"Description: Are you looking for a deeper understanding of the Java programming language?",
		"Genres: Programming, Computer Science",
		"User Reviews:\n1. Ada (5/5 stars): The best book on writing idiomatic Java I have read in years.\n2. Anonymous: Bloch explains",
	} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("expected text to contain %q, got:\n%s", want, res.Text)
		}
	}
	if strings.Contains(res.Text, "Too short.") || strings.Contains(res.Text, "3. ") {
		t.Errorf("expected short and duplicate reviews to be dropped, got:\n%s", res.Text)
	}
	if !strings.HasSuffix(res.Text, "...") {
		t.Errorf("expected the long review to be truncated, got:\n%s", res.Text)
	}
}

func TestGoodreadsWithoutTitleIsSkipped(t *testing.T) {
	res := providers.NewGoodreads("http://127.0.0.1:1").Fetch(context.Background(), providers.Query{ISBN: "9780134685991"})
	if res.Outcome != providers.OutcomeEmpty || res.Reason != "no title" {
		t.Fatalf("expected empty with no title reason, got %s %q", res.Outcome, res.Reason)
	}
}

func TestFromConfigHonoursEnabledList(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProviders("goodreads", "isbndb"))
	list := providers.FromConfig(cfg)
	if len(list) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(list))
	}
	if list[0].Kind() != providers.KindISBNdb || list[1].Kind() != providers.KindGoodreads {
		t.Fatalf("expected aggregation order isbndb, goodreads; got %s, %s", list[0].Kind(), list[1].Kind())
	}
	if !list[1].TitleDependent() || list[0].TitleDependent() {
		t.Fatal("unexpected title dependence")
	}
}
