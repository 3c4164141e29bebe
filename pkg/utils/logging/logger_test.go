package logging_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/marten/pkg/utils/logging"
)

func jsonRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec map[string]any
		gt.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		records = append(records, rec)
	}
	return records
}

func TestLevelFiltering(t *testing.T) {
	testCases := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{"Warning", []string{"WARN", "ERROR"}},
		{"ERROR", []string{"ERROR"}},
		{"verbose", []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.New(tc.level, &buf, logging.WithFormat(logging.FormatJSON))
			logger.Debug("collecting")
			logger.Info("collecting")
			logger.Warn("collecting")
			logger.Error("collecting")

			records := jsonRecords(t, &buf)
			gt.A(t, records).Length(len(tc.want))
			for i, rec := range records {
				gt.Equal(t, rec["level"], any(tc.want[i]))
			}
		})
	}
}

func TestJSONFormatCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("info", &buf, logging.WithFormat(logging.FormatJSON)).
		With("session_id", "user-1")

	logger.Info("query classified", "category", "STOCKS", "attempts", 2)

	records := jsonRecords(t, &buf)
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0]["msg"], any("query classified"))
	gt.Equal(t, records[0]["session_id"], any("user-1"))
	gt.Equal(t, records[0]["category"], any("STOCKS"))
	gt.Equal(t, records[0]["attempts"], any(float64(2)))
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	var buf bytes.Buffer
	logging.New("info", &buf).Info("handler finished", "category", "NEWS")

	out := buf.String()
	gt.S(t, out).Contains("handler finished")
	gt.S(t, out).Contains("NEWS")
	gt.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestNilWriterUsesStderr(t *testing.T) {
	r, w, err := os.Pipe()
	gt.NoError(t, err)

	orig := os.Stderr
	os.Stderr = w
	logger := logging.New("info", nil, logging.WithFormat(logging.FormatJSON))
	os.Stderr = orig

	logger.Info("kept off stdout")
	gt.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	gt.NoError(t, err)
	gt.S(t, string(out)).Contains("kept off stdout")
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("debug", &buf, logging.WithFormat(logging.FormatJSON))

	ctx := logging.With(context.Background(), logger.With("request_id", "r-1"))
	logging.From(ctx).Debug("analyze request")

	records := jsonRecords(t, &buf)
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0]["request_id"], any("r-1"))
}

func TestFromFallsBackToDefault(t *testing.T) {
	orig := logging.Default()
	t.Cleanup(func() { logging.SetDefault(orig) })

	var buf bytes.Buffer
	logging.SetDefault(logging.New("warn", &buf, logging.WithFormat(logging.FormatJSON)))

	logger := logging.From(context.Background())
	gt.Equal(t, logger, logging.Default())

	logger.Info("dropped")
	logger.Warn("kept")
	records := jsonRecords(t, &buf)
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0]["msg"], any("kept"))
}
