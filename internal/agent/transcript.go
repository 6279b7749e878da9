package agent

import (
	"fmt"
	"os"
	"strings"
)

const (
	transcriptFileName = "transcript.log"
	transcriptHeader   = "---\n\nINTERACTION HISTORY:\n"
)

// transcript is the loop's only memory: an append-only text log replayed
// to the decision model in full on every iteration. Every append also
// rewrites the backing file so an aborted run still leaves an audit trail.
type transcript struct {
	path  string
	text  strings.Builder
	steps int
}

func newTranscript(path string) *transcript {
	t := &transcript{path: path}
	t.text.WriteString(transcriptHeader)
	t.flush()
	return t
}

// AppendStep records a decision summary and returns its step number.
func (t *transcript) AppendStep(summary string) int {
	t.steps++
	t.append(fmt.Sprintf("Step %d: %s\n", t.steps, summary))
	return t.steps
}

// AppendAction records the outcome of one executed action.
func (t *transcript) AppendAction(outcome string) {
	t.append("Action: " + outcome + "\n")
}

func (t *transcript) append(line string) {
	t.text.WriteString(line)
	t.flush()
}

func (t *transcript) flush() {
	if t.path == "" {
		return
	}
	// Best effort. A read-only workdir must not break the loop itself.
	_ = os.WriteFile(t.path, []byte(t.text.String()), 0o644)
}

// Text returns the full transcript, header included.
func (t *transcript) Text() string { return t.text.String() }

// Steps reports how many decision summaries have been recorded.
func (t *transcript) Steps() int { return t.steps }
