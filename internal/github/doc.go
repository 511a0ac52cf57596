// Package github fetches pull request diffs and posts code-sherpa results
// back as pull request reviews.
//
// Authentication uses GITHUB_TOKEN; GITHUB_API_URL points the client at a
// GitHub Enterprise instance. Comments that land inside a diff hunk are
// posted inline and everything else goes into the review body.
package github
