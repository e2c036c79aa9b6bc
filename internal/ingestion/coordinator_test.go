package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"logscope/internal/parser/accesslog"

	"github.com/pterm/pterm"
)

func testLogger() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelError)
}

func testCoordinator(t *testing.T, opts Options) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(accesslog.NewParser(testLogger()), testLogger(), opts)
	if err != nil {
		t.Fatalf("Failed to create coordinator: %v", err)
	}
	return c
}

func sampleLog(lines int) string {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		status := []int{200, 200, 404, 301}[i%4]
		fmt.Fprintf(&b, "10.0.%d.%d - - [10/Oct/2023:13:%02d:%02d +0000] \"GET /page%d HTTP/1.1\" %d %d \"-\" \"Mozilla/5.0\"\n",
			i/250, i%250, i/60%60, i%60, i%7, status, i*10)
	}
	return b.String()
}

func TestCoordinator_RejectsInvalidShardCount(t *testing.T) {
	_, err := NewCoordinator(accesslog.NewParser(testLogger()), testLogger(), Options{ShardCount: -1})
	if err == nil {
		t.Fatal("Expected an error for shard count below 1")
	}
}

func TestCoordinator_Ingest_SingleShard(t *testing.T) {
	c := testCoordinator(t, Options{ShardCount: 1})

	result, err := c.Ingest(context.Background(), sampleLog(10))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if len(result.Records) != 10 {
		t.Errorf("Expected 10 records, got %d", len(result.Records))
	}
	for i, r := range result.Records {
		if r.LineNumber != i+1 {
			t.Fatalf("Record %d has line number %d, order not preserved", i, r.LineNumber)
		}
	}
}

func TestCoordinator_Ingest_OrderInvariantUnderShardCount(t *testing.T) {
	text := sampleLog(523)

	baseline, err := testCoordinator(t, Options{ShardCount: 1}).Ingest(context.Background(), text)
	if err != nil {
		t.Fatalf("Baseline ingest failed: %v", err)
	}

	for _, shards := range []int{2, 3, 4, 6} {
		c := testCoordinator(t, Options{ShardCount: shards, ChunkSize: 50})
		result, err := c.Ingest(context.Background(), text)
		if err != nil {
			t.Fatalf("Ingest with %d shards failed: %v", shards, err)
		}

		if len(result.Records) != len(baseline.Records) {
			t.Fatalf("Shard count %d changed record count: %d vs %d",
				shards, len(result.Records), len(baseline.Records))
		}
		for i := range result.Records {
			if result.Records[i].LineNumber != baseline.Records[i].LineNumber {
				t.Fatalf("Shard count %d changed record order at index %d", shards, i)
			}
		}
	}
}

func TestCoordinator_Ingest_MalformedLinesTolerated(t *testing.T) {
	var b strings.Builder
	b.WriteString(sampleLog(10))
	b.WriteString("complete garbage with no structure\n")
	b.WriteString("another bad line -- -- --\n")
	b.WriteString("x y z\n")

	c := testCoordinator(t, Options{ShardCount: 3})
	result, err := c.Ingest(context.Background(), b.String())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if len(result.Records) != 10 {
		t.Errorf("Expected exactly the 10 well-formed records, got %d", len(result.Records))
	}
	if result.LinesRejected != 3 {
		t.Errorf("Expected 3 rejected lines, got %d", result.LinesRejected)
	}
}

func TestCoordinator_Ingest_NoValidRecords(t *testing.T) {
	c := testCoordinator(t, Options{ShardCount: 2})

	_, err := c.Ingest(context.Background(), "garbage\nmore garbage\n# only comments\n")
	if !errors.Is(err, ErrNoValidRecords) {
		t.Fatalf("Expected ErrNoValidRecords, got %v", err)
	}
}

func TestCoordinator_Ingest_Vocabularies(t *testing.T) {
	c := testCoordinator(t, Options{ShardCount: 4})

	text := strings.Join([]string{
		`1.1.1.1 - - [10/Oct/2023:13:55:36 +0000] "GET /a HTTP/1.1" 404 10`,
		`1.1.1.1 - - [10/Oct/2023:13:55:37 +0000] "POST /b HTTP/1.1" 200 10`,
		`1.1.1.1 - - [10/Oct/2023:13:55:38 +0000] "GET /c HTTP/1.1" 200 10`,
		`1.1.1.1 - - [10/Oct/2023:13:55:39 +0000] "DELETE /d HTTP/1.1" 500 10`,
	}, "\n")

	result, err := c.Ingest(context.Background(), text)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	wantStatuses := []int{200, 404, 500}
	if len(result.Statuses) != len(wantStatuses) {
		t.Fatalf("Expected statuses %v, got %v", wantStatuses, result.Statuses)
	}
	for i, s := range wantStatuses {
		if result.Statuses[i] != s {
			t.Errorf("Expected statuses %v, got %v", wantStatuses, result.Statuses)
			break
		}
	}

	wantMethods := []string{"DELETE", "GET", "POST"}
	if len(result.Methods) != len(wantMethods) {
		t.Fatalf("Expected methods %v, got %v", wantMethods, result.Methods)
	}
	for i, m := range wantMethods {
		if result.Methods[i] != m {
			t.Errorf("Expected methods %v, got %v", wantMethods, result.Methods)
			break
		}
	}
}

func TestCoordinator_Ingest_ProgressSignals(t *testing.T) {
	var stages []string
	var finalPercent int

	c := testCoordinator(t, Options{
		ShardCount: 1,
		ChunkSize:  100,
		Progress: func(p Progress) {
			stages = append(stages, p.Stage)
			finalPercent = p.Percent
		},
	})

	if _, err := c.Ingest(context.Background(), sampleLog(450)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if len(stages) < 2 {
		t.Fatalf("Expected multiple progress signals, got %d", len(stages))
	}
	if stages[len(stages)-1] != "merge" {
		t.Errorf("Expected final signal from merge stage, got %q", stages[len(stages)-1])
	}
	if finalPercent != 100 {
		t.Errorf("Expected final percent 100, got %d", finalPercent)
	}
}

func TestCoordinator_Ingest_CRLFLineEndings(t *testing.T) {
	c := testCoordinator(t, Options{ShardCount: 1})

	text := "1.1.1.1 - - [10/Oct/2023:13:55:36 +0000] \"GET /a HTTP/1.1\" 200 10\r\n" +
		"2.2.2.2 - - [10/Oct/2023:13:55:37 +0000] \"GET /b HTTP/1.1\" 200 10\r\n"

	result, err := c.Ingest(context.Background(), text)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Errorf("Expected 2 records from CRLF input, got %d", len(result.Records))
	}
}
