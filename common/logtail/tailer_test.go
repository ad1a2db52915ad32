package logtail

import (
	"context"
	"io/ioutil"
	"os"
	"path"
	"testing"
	"time"
)

func collectAll(t *testing.T, lines chan string) []string {
	collected := make([]string, 0)
	timeout := time.After(5 * time.Second)
	for {
		select {
		case line, more := <-lines:
			if !more {
				return collected
			}
			collected = append(collected, line)
		case <-timeout:
			t.Fatal("timed out waiting for the tailer to finish")
			return nil
		}
	}
}

/*
*
a file that is not growing should be read to the end and then the channel closed
after the debounce interval
*/
func TestTailStaticFile(t *testing.T) {
	tempDir, _ := ioutil.TempDir("", "tailtest")
	defer os.RemoveAll(tempDir)

	logPath := path.Join(tempDir, "session.log")
	ioutil.WriteFile(logPath, []byte("line one\nline two\nline three\n"), 0644)

	tailer := NewTailer(10*time.Millisecond, 50*time.Millisecond)
	lines, openErr := tailer.Open(context.Background(), logPath)
	if openErr != nil {
		t.Fatal("Open failed unexpectedly: ", openErr)
	}

	collected := collectAll(t, lines)
	if len(collected) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(collected), collected)
	}
	if collected[0] != "line one" || collected[2] != "line three" {
		t.Errorf("wrong lines collected: %v", collected)
	}
}

/*
*
lines appended while tailing should be delivered, and two independent tailers
on the same file should see the identical sequence
*/
func TestTailGrowingFileTwoReaders(t *testing.T) {
	tempDir, _ := ioutil.TempDir("", "tailtest")
	defer os.RemoveAll(tempDir)

	logPath := path.Join(tempDir, "session.log")
	f, createErr := os.Create(logPath)
	if createErr != nil {
		t.Fatal(createErr)
	}
	f.WriteString("first\n")

	tailer := NewTailer(10*time.Millisecond, 200*time.Millisecond)
	linesA, errA := tailer.Open(context.Background(), logPath)
	linesB, errB := tailer.Open(context.Background(), logPath)
	if errA != nil || errB != nil {
		t.Fatal("Open failed unexpectedly: ", errA, errB)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		f.WriteString("second\n")
		time.Sleep(50 * time.Millisecond)
		f.WriteString("third\n")
		f.Close()
	}()

	collectedA := collectAll(t, linesA)
	collectedB := collectAll(t, linesB)

	if len(collectedA) != 3 {
		t.Fatalf("expected 3 lines from reader A, got %v", collectedA)
	}
	if len(collectedA) != len(collectedB) {
		t.Fatalf("readers disagree on line count: %d vs %d", len(collectedA), len(collectedB))
	}
	for i := range collectedA {
		if collectedA[i] != collectedB[i] {
			t.Errorf("readers disagree at line %d: '%s' vs '%s'", i, collectedA[i], collectedB[i])
		}
	}
}

/*
*
a trailing line with no newline yet should be held back until the debounce
expires, then delivered
*/
func TestTailPartialLastLine(t *testing.T) {
	tempDir, _ := ioutil.TempDir("", "tailtest")
	defer os.RemoveAll(tempDir)

	logPath := path.Join(tempDir, "session.log")
	ioutil.WriteFile(logPath, []byte("complete\nincomplete"), 0644)

	tailer := NewTailer(10*time.Millisecond, 50*time.Millisecond)
	lines, _ := tailer.Open(context.Background(), logPath)

	collected := collectAll(t, lines)
	if len(collected) != 2 {
		t.Fatalf("expected 2 lines, got %v", collected)
	}
	if collected[1] != "incomplete" {
		t.Errorf("partial line not delivered, got '%s'", collected[1])
	}
}

func TestTailCancellation(t *testing.T) {
	tempDir, _ := ioutil.TempDir("", "tailtest")
	defer os.RemoveAll(tempDir)

	logPath := path.Join(tempDir, "session.log")
	ioutil.WriteFile(logPath, []byte("line\n"), 0644)

	ctx, cancel := context.WithCancel(context.Background())
	tailer := NewTailer(10*time.Millisecond, time.Hour) //debounce long enough to never fire
	lines, _ := tailer.Open(ctx, logPath)

	<-lines //first line
	cancel()

	select {
	case _, more := <-lines:
		if more {
			//one buffered line may still arrive; the close must follow promptly
			_, more = <-lines
			if more {
				t.Error("channel still open after cancellation")
			}
		}
	case <-time.After(2 * time.Second):
		t.Error("channel not closed after cancellation")
	}
}

func TestLastLines(t *testing.T) {
	tempDir, _ := ioutil.TempDir("", "tailtest")
	defer os.RemoveAll(tempDir)

	logPath := path.Join(tempDir, "session.log")
	ioutil.WriteFile(logPath, []byte("one\ntwo\nthree\nfour\n"), 0644)

	window, err := LastLines(logPath, 2)
	if err != nil {
		t.Fatal("LastLines failed unexpectedly: ", err)
	}
	if len(window) != 2 || window[0] != "three" || window[1] != "four" {
		t.Errorf("wrong window returned: %v", window)
	}

	full, _ := LastLines(logPath, 0)
	if len(full) != 4 {
		t.Errorf("expected the whole file for count 0, got %v", full)
	}
}
