// Package gsmarena scrapes the GSMArena phone catalog.
//
// every scraping method has the same structure:
//  1. turn the input into a request (a year becomes a results.php3 query,
//     a listing href becomes an absolute detail url).
//  2. make the request, pacing it and retrying on 429.
//  3. hand the parsed document to a Markup, which knows the selectors of
//     one version of the site's layout and turns it into output structs.
//
// only step 3 depends on the site's markup, when the layout changes a new
// Markup implementation is added and the rest stays as is.
package gsmarena
