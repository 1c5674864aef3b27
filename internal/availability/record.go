// Package availability fetches roster, injury and depth-chart status for every
// NFL player from the Sleeper API, with a disk snapshot to fall back on.
package availability

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is the normalized availability state of one player.
type Record struct {
	ID                 string `json:"id"`
	FullName           string `json:"full_name"`
	Team               string `json:"team"`
	Position           string `json:"position"`
	Status             string `json:"status"`
	InjuryStatus       string `json:"injury_status"`
	NewsUpdated        int64  `json:"news_updated,omitempty"`
	DepthChartOrder    *int   `json:"depth_chart_order,omitempty"`
	DepthChartPosition string `json:"depth_chart_position,omitempty"`
}

// Records is keyed by availability (Sleeper) id.
type Records map[string]Record

// RawPlayers is the remote payload as received: player id -> arbitrary JSON.
type RawPlayers map[string]json.RawMessage

// Normalize reduces a raw payload to Records. Entries that are not JSON
// objects are dropped; missing or mistyped fields become zero values.
func Normalize(raw RawPlayers) Records {
	records := make(Records, len(raw))

	for id, body := range raw {
		var fields map[string]interface{}
		if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
			continue
		}

		name := stringField(fields, "full_name")
		if name == "" {
			name = strings.TrimSpace(stringField(fields, "first_name") + " " + stringField(fields, "last_name"))
		}

		records[id] = Record{
			ID:                 id,
			FullName:           name,
			Team:               stringField(fields, "team"),
			Position:           stringField(fields, "position"),
			Status:             stringField(fields, "status"),
			InjuryStatus:       stringField(fields, "injury_status"),
			NewsUpdated:        int64Field(fields, "news_updated"),
			DepthChartOrder:    intPtrField(fields, "depth_chart_order"),
			DepthChartPosition: stringField(fields, "depth_chart_position"),
		}
	}

	return records
}

func stringField(fields map[string]interface{}, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func int64Field(fields map[string]interface{}, key string) int64 {
	switch v := fields[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func intPtrField(fields map[string]interface{}, key string) *int {
	var n int
	switch v := fields[key].(type) {
	case float64:
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

// Long-form statuses the Sleeper feed uses for the short codes.
var statusAliases = map[string]string{
	"INJURED_RESERVE":              "IR",
	"PHYSICALLY_UNABLE_TO_PERFORM": "PUP",
	"NON_FOOTBALL_INJURY":          "NFI",
}

// NormalizeStatus upper-cases a status, joins its words with underscores and
// maps long-form names onto their short codes.
func NormalizeStatus(status string) string {
	s := strings.ToUpper(strings.TrimSpace(status))
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
	if alias, ok := statusAliases[s]; ok {
		return alias
	}
	return s
}
