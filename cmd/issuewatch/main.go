// Command issuewatch discovers newly published issues of a periodical and
// keeps a deduplicated, chronologically ordered record of every known issue.
package main

func main() {
	Execute()
}
