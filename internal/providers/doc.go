// Package providers adapts the external book metadata sources used by the
// aggregator: the ISBNdb JSON API, OpenLibrary's search API and work pages,
// and Goodreads search and book pages.
//
// Each adapter implements Provider and reports every attempt as a typed
// Result. Network errors, non-200 responses and parse failures become
// OutcomeFailed; a source that answered without usable content is
// OutcomeEmpty. Adapters never return partial text from an error path.
//
// HTML extraction uses goquery with several fallback selectors per field.
// Page markup changes without notice, so selectors are best effort and an
// unmatched page degrades to OutcomeEmpty rather than an error.
package providers
