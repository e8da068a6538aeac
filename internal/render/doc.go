// Package render turns chat state into terminal output: plain text from
// message markdown, grouped transcripts, the inbox, and the status indicator.
// Colors come from fatih/color and switch off automatically when stdout is
// not a terminal.
package render
