package publisher

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fortuna/ceres/internal/engine"
)

func TestTableArgs(t *testing.T) {
	p := &RedisStreamPublisher{now: func() time.Time { return time.Unix(1700000000, 0) }}
	table := engine.Table{
		RunID:   "run-1",
		Kind:    engine.KindWeekly,
		Scoring: "ppr",
		Season:  2024,
		Week:    5,
		Rows: []engine.Row{
			{PlayerID: "A", Points: 12.5},
			{PlayerID: "B", ZeroedBy: engine.ZeroedBye},
		},
	}

	args, err := p.tableArgs(table)
	if err != nil {
		t.Fatalf("tableArgs error: %v", err)
	}
	if args.Stream != WeeklyStream {
		t.Errorf("stream = %s, want %s", args.Stream, WeeklyStream)
	}

	values := args.Values.(map[string]interface{})
	if values["rows"] != 2 || values["zeroed"] != 1 || values["timestamp"] != int64(1700000000) {
		t.Errorf("values = %v", values)
	}

	var decoded engine.Table
	if err := json.Unmarshal([]byte(values["data"].(string)), &decoded); err != nil {
		t.Fatalf("data is not a table: %v", err)
	}
	if decoded.RunID != "run-1" || len(decoded.Rows) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}

	table.Kind = engine.KindSeasonal
	args, _ = p.tableArgs(table)
	if args.Stream != SeasonalStream {
		t.Errorf("stream = %s, want %s", args.Stream, SeasonalStream)
	}
}
