package orchestrator

import (
	"fmt"
	"io/ioutil"
	"regexp"
	"strconv"
	"strings"

	"github.com/desto-project/desto/common/models"
)

/*
*
the composite command line writes these markers around the chain so that the
final exit status can be recovered from the log alone, even after the backend
session is long gone.
*/
var exitMarkerPattern = regexp.MustCompile(`=== SCRIPT FINISHED at .* \(exit code: (\d+)\) ===`)

var startMarkerPattern = regexp.MustCompile(`=== SCRIPT STARTING at `)

var shellSafePattern = regexp.MustCompile(`^[a-zA-Z0-9_@%+=:,./-]+$`)

/*
*
quote a string for safe inclusion in a bash command line, the same way
shlex.quote does: wrap in single quotes, with embedded single quotes escaped
*/
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafePattern.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

/*
*
BuildCommandLine assembles the single bash command line delivered to the
backend session for the given job. The scripts are joined by && or ; depending
on the chain policy, output is redirected into the job's log file with start
and finish markers around it, and a keep-alive job gets a trailing idle hold
so the session survives for log inspection whatever the chain outcome.

appendMode adds a separator instead of truncating an existing log file.
*/
func BuildCommandLine(job *models.Job, appendMode bool) string {
	var joiner string
	if job.ChainPolicy == models.CHAIN_RUN_REGARDLESS {
		joiner = "; "
	} else {
		joiner = " && "
	}
	chain := strings.Join(job.ScriptChain, joiner)

	quotedLog := shellQuote(job.LogPath)
	parts := make([]string, 0, 5)

	if appendMode {
		parts = append(parts, fmt.Sprintf(`printf '\n---- NEW SESSION (%%s) -----\n' "$(date '+%%Y-%%m-%%d %%H:%%M:%%S')" >> %s`, quotedLog))
		parts = append(parts, fmt.Sprintf(`printf '\n=== SCRIPT STARTING at %%s ===\n' "$(date)" >> %s`, quotedLog))
	} else {
		parts = append(parts, fmt.Sprintf(`printf '\n=== SCRIPT STARTING at %%s ===\n' "$(date)" > %s`, quotedLog))
	}

	parts = append(parts, fmt.Sprintf(`(%s) >> %s 2>&1`, chain, quotedLog))
	parts = append(parts, `SCRIPT_EXIT_CODE=$?`)
	parts = append(parts, fmt.Sprintf(`printf '\n=== SCRIPT FINISHED at %%s (exit code: %%s) ===\n' "$(date)" "$SCRIPT_EXIT_CODE" >> %s`, quotedLog))

	if job.KeepAlive {
		parts = append(parts, fmt.Sprintf(`tail -f /dev/null >> %s 2>&1`, quotedLog))
	} else {
		parts = append(parts, `exit $SCRIPT_EXIT_CODE`)
	}

	return strings.Join(parts, "\n")
}

/*
*
BuildScheduledCommandLine wraps the composite command in the tmux invocation
that the deferred-execution facility will run when the schedule fires.
*/
func BuildScheduledCommandLine(job *models.Job, appendMode bool) string {
	inner := BuildCommandLine(job, appendMode)
	return fmt.Sprintf("tmux new-session -d -s %s bash -c %s", shellQuote(job.SessionName), shellQuote(inner))
}

/*
*
ParseExitMarker looks for a finish marker in the most recent run recorded in
the job's log file. In append mode the log carries markers from earlier runs
too, so only the portion after the last start marker counts; a stale finish
marker from a previous run must not be read as this run's exit status.
Returns a pointer to the recorded exit code, or nil if no marker is present
(e.g. the session was killed externally before the chain completed).
*/
func ParseExitMarker(logPath string) *int {
	content, readErr := ioutil.ReadFile(logPath)
	if readErr != nil {
		return nil
	}

	searchIn := string(content)
	startLocs := startMarkerPattern.FindAllStringIndex(searchIn, -1)
	if len(startLocs) > 0 {
		searchIn = searchIn[startLocs[len(startLocs)-1][1]:]
	}

	matches := exitMarkerPattern.FindAllStringSubmatch(searchIn, -1)
	if len(matches) == 0 {
		return nil
	}

	code, parseErr := strconv.Atoi(matches[len(matches)-1][1])
	if parseErr != nil {
		return nil
	}
	return &code
}
