//go:build !wahdebug

package wah

const invariantChecks = false
