// Package logtail reads a session's captured log file as a sequence of lines,
// following the file while the backend process is still appending to it. It is
// purely read-side; any number of tailers can follow the same file at once.
package logtail

import (
	"bufio"
	"context"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"time"
)

type Tailer struct {
	PollInterval time.Duration
	Debounce     time.Duration
}

func NewTailer(pollInterval time.Duration, debounce time.Duration) *Tailer {
	return &Tailer{
		PollInterval: pollInterval,
		Debounce:     debounce,
	}
}

/*
*
Open returns a channel of log lines, starting from the top of the file. While
the file keeps growing the channel stays open and new lines are delivered as
they appear; once the file has stopped growing for the debounce interval the
remaining partial line (if any) is delivered and the channel is closed.
Cancelling the context closes the channel immediately.
*/
func (t *Tailer) Open(ctx context.Context, logPath string) (chan string, error) {
	f, openErr := os.Open(logPath)
	if openErr != nil {
		log.Printf("Could not open log file '%s': %s", logPath, openErr)
		return nil, openErr
	}

	lines := make(chan string, 100)
	go t.follow(ctx, f, lines)
	return lines, nil
}

func (t *Tailer) follow(ctx context.Context, f *os.File, lines chan string) {
	defer f.Close()
	defer close(lines)

	reader := bufio.NewReader(f)
	var partial strings.Builder
	quietSince := time.Now()

	for {
		grew := false
		for {
			chunk, readErr := reader.ReadString('\n')
			if chunk != "" {
				grew = true
			}
			if readErr == nil {
				partial.WriteString(strings.TrimSuffix(chunk, "\n"))
				select {
				case lines <- partial.String():
				case <-ctx.Done():
					return
				}
				partial.Reset()
				continue
			}
			if readErr == io.EOF {
				//hold on to an incomplete trailing line until the writer finishes it
				partial.WriteString(chunk)
				break
			}
			log.Printf("ERROR: could not read log file '%s': %s", f.Name(), readErr)
			return
		}

		if grew {
			quietSince = time.Now()
		} else if time.Since(quietSince) >= t.Debounce {
			if partial.Len() > 0 {
				select {
				case lines <- partial.String():
				case <-ctx.Done():
				}
			}
			return
		}

		select {
		case <-time.After(t.PollInterval):
		case <-ctx.Done():
			return
		}
	}
}

/*
*
LastLines reads the final `count` lines of the file in one shot, for log
windows where a live follow is not wanted. A count of 0 or less returns the
whole file.
*/
func LastLines(logPath string, count int) ([]string, error) {
	content, readErr := ioutil.ReadFile(logPath)
	if readErr != nil {
		return nil, readErr
	}

	allLines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	if len(allLines) == 1 && allLines[0] == "" {
		return []string{}, nil
	}
	if count > 0 && len(allLines) > count {
		allLines = allLines[len(allLines)-count:]
	}
	return allLines, nil
}
