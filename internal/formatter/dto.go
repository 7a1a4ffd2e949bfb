package formatter

import (
	"encoding/json"

	"github.com/mcncl/domtools/internal/encoder"
	"github.com/mcncl/domtools/internal/finder"
	"github.com/mcncl/domtools/internal/keystats"
	"github.com/mcncl/domtools/internal/models"
)

type groupJSON struct {
	Count int             `json:"count"`
	Value json.RawMessage `json:"value"`
	Paths []models.Path   `json:"paths"`
}

type keyFindingsJSON struct {
	Key    string      `json:"key"`
	Count  int         `json:"count"`
	Groups []groupJSON `json:"groups"`
}

type findingsJSON struct {
	Keys      []keyFindingsJSON `json:"keys"`
	Rejected  int               `json:"rejected,omitempty"`
	Truncated []models.Path     `json:"truncated,omitempty"`
}

func findingsDTO(res *finder.Result) findingsJSON {
	out := findingsJSON{Keys: make([]keyFindingsJSON, 0, len(res.Keys)), Rejected: res.Rejected, Truncated: res.Truncated}
	for _, key := range res.Keys {
		entry := keyFindingsJSON{Key: key, Count: res.Count(key), Groups: make([]groupJSON, 0)}
		for _, g := range res.Groups(key) {
			entry.Groups = append(entry.Groups, groupJSON{Count: g.Count(), Value: rawJSON(g.Value), Paths: g.Paths})
		}
		out.Keys = append(out.Keys, entry)
	}
	return out
}

type sampleJSON struct {
	Path  models.Path     `json:"path"`
	Value json.RawMessage `json:"value"`
}

type keyStatJSON struct {
	Key     string       `json:"key"`
	Count   int          `json:"count"`
	Samples []sampleJSON `json:"samples"`
}

type keyStatsJSON struct {
	Keys      []keyStatJSON           `json:"keys"`
	NodeTypes []keystats.NodeTypeStat `json:"node_types"`
	Truncated []models.Path           `json:"truncated,omitempty"`
}

func keyStatsDTO(report *keystats.Report) keyStatsJSON {
	out := keyStatsJSON{Keys: make([]keyStatJSON, 0, len(report.Keys)), NodeTypes: report.NodeTypes, Truncated: report.Truncated}
	if out.NodeTypes == nil {
		out.NodeTypes = []keystats.NodeTypeStat{}
	}
	for _, stat := range report.Keys {
		entry := keyStatJSON{Key: stat.Key, Count: stat.Count, Samples: make([]sampleJSON, 0, len(stat.Samples))}
		for _, s := range stat.Samples {
			entry.Samples = append(entry.Samples, sampleJSON{Path: s.Path, Value: rawJSON(s.Value)})
		}
		out.Keys = append(out.Keys, entry)
	}
	return out
}

// rawJSON embeds a value in a report verbatim, member order included.
func rawJSON(v models.Value) json.RawMessage {
	data, err := encoder.Marshal(v, encoder.Compact)
	if err != nil {
		return encoder.Canonical(v)
	}
	return data
}
