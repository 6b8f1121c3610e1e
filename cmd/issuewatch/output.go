package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pevans/issuewatch/discovery"
	"github.com/pevans/issuewatch/issue"
)

// outputDelimiter terminates the multiline new_issues value.
const outputDelimiter = "EOF"

// writeGitHubOutput writes the step outputs for a run in the
// GITHUB_OUTPUT file syntax.
func writeGitHubOutput(w io.Writer, inserted []issue.Record) error {
	if inserted == nil {
		inserted = []issue.Record{}
	}

	data, err := json.Marshal(inserted)
	if err != nil {
		return fmt.Errorf("failed to encode new issues: %w", err)
	}

	_, err = fmt.Fprintf(w, "new_issues_count=%d\nhas_new_issues=%t\nnew_issues<<%s\n%s\n%s\n",
		len(inserted), len(inserted) > 0, outputDelimiter, data, outputDelimiter)
	return err
}

// appendGitHubOutput appends the step outputs to the file at path.
func appendGitHubOutput(path string, inserted []issue.Record) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open GitHub output file: %w", err)
	}
	defer file.Close()

	if err := writeGitHubOutput(file, inserted); err != nil {
		return err
	}
	return file.Close()
}

// printSummary writes a human-readable account of the run.
func printSummary(w io.Writer, result *discovery.Result) {
	if !result.HasNewIssues() {
		fmt.Fprintln(w, "No new issues found.")
	} else {
		fmt.Fprintf(w, "Found %d new issue(s):\n", len(result.Inserted))
		for _, r := range result.Inserted {
			fmt.Fprintf(w, "  Volume: %d, Issue: %d, Year: %d, Month: %s, isnumber: %s\n",
				r.Volume, r.Issue, r.Year, r.Month, r.ISNumber)
		}
	}

	if n := len(result.SkippedYears) + len(result.SkippedLinks); n > 0 {
		fmt.Fprintf(w, "Skipped %d year(s) and %d issue link(s); see the log for details.\n",
			len(result.SkippedYears), len(result.SkippedLinks))
	}
}
