// Package account knows how Google web apps encode the signed-in account
// selector in their URLs and how to rewrite a URL to select another account.
//
// # Conventions
//
// Two encodings are in use across the supported apps:
//
//   - PathSuffix: a "/u/<n>" path segment, e.g. https://mail.google.com/mail/u/1/
//   - QueryParam: an "authuser=<n>" query parameter, e.g. https://meet.google.com/x?authuser=1
//
// The account index is zero based and index 0 is the implicit default, so a
// URL without any marker selects account 0.
//
// # Registry
//
// The set of supported apps is fixed. Lookup classifies a hostname
// (as returned by ExtractHostApp) and reports its convention and the path
// prefix that has to be inserted together with a new marker.
//
// # Rewriting
//
// Rewrite works on the raw URL string. Markers are replaced in place and new
// markers are spliced at a fixed position, so the order of every other path
// segment and query parameter is preserved exactly.
//
//	app, _ := account.Lookup("mail.google.com")
//	out := account.Rewrite("https://mail.google.com/mail/u/0/#inbox", app, 2)
//	// out.URL == "https://mail.google.com/mail/u/2/#inbox"
package account
