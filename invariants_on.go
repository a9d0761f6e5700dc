//go:build wahdebug

package wah

// invariantChecks enables a full validation after every mutating operation.
const invariantChecks = true
