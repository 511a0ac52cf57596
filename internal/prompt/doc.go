// Package prompt renders the embedded prompt templates used by the review
// agents and the summarizer.
//
// Templates live under templates/<group>/<name>.tmpl and are addressed as
// "<group>/<name>", for example "review/security". They are parsed with
// missingkey=error so that a template referring to a variable the caller did
// not supply fails loudly instead of sending a half-empty prompt.
package prompt
