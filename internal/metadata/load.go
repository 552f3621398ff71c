package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/tables"
)

// Sources names the files a Store is built from. Labels and Datatypes are
// required; the rest may be empty.
type Sources struct {
	Labels       string
	Aliases      string
	Descriptions string
	Datatypes    string
	// Remote is a JSON object of {"P1": {"pagerank": 0.1, "statements": 3}}.
	Remote string
}

// CountSources names the count tables a FrequencyTable is built from.
type CountSources struct {
	Claims     string
	Qualifiers string
	Total      string
}

type remoteStats struct {
	PageRank   float64 `json:"pagerank"`
	Statements int64   `json:"statements"`
}

var edgeColumns = []string{"node1", "node2"}

// LoadStore reads the metadata tables. Only properties with at least one
// label are kept; the number of skipped identifiers is returned.
func LoadStore(src Sources) (*Store, int, error) {
	records := make(map[graph.PropertyID]*PropertyRecord)
	get := func(id graph.PropertyID) *PropertyRecord {
		rec, ok := records[id]
		if !ok {
			rec = &PropertyRecord{ID: id}
			records[id] = rec
		}
		return rec
	}

	err := tables.ReadFile(src.Labels, edgeColumns, func(r tables.Row) error {
		rec := get(graph.PropertyID(r.Get("node1")))
		rec.Labels = append(rec.Labels, tables.Unquote(r.Get("node2")))
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("loading labels: %w", err)
	}

	if src.Aliases != "" {
		err = tables.ReadFile(src.Aliases, edgeColumns, func(r tables.Row) error {
			rec := get(graph.PropertyID(r.Get("node1")))
			rec.Aliases = append(rec.Aliases, tables.Unquote(r.Get("node2")))
			return nil
		})
		if err != nil {
			return nil, 0, fmt.Errorf("loading aliases: %w", err)
		}
	}

	if src.Descriptions != "" {
		err = tables.ReadFile(src.Descriptions, edgeColumns, func(r tables.Row) error {
			get(graph.PropertyID(r.Get("node1"))).Description = tables.Unquote(r.Get("node2"))
			return nil
		})
		if err != nil {
			return nil, 0, fmt.Errorf("loading descriptions: %w", err)
		}
	}

	err = tables.ReadFile(src.Datatypes, edgeColumns, func(r tables.Row) error {
		get(graph.PropertyID(r.Get("node1"))).ValueType = ValueType(strings.TrimSpace(r.Get("node2")))
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("loading datatypes: %w", err)
	}

	if src.Remote != "" {
		stats, err := loadRemoteStats(src.Remote)
		if err != nil {
			return nil, 0, err
		}
		for id, s := range stats {
			if rec, ok := records[graph.PropertyID(id)]; ok {
				rec.PageRank = s.PageRank
				rec.Statements = s.Statements
			}
		}
	}

	skipped := 0
	for id, rec := range records {
		if len(rec.Labels) == 0 {
			delete(records, id)
			skipped++
		}
	}

	return NewStore(records), skipped, nil
}

func loadRemoteStats(path string) (map[string]remoteStats, error) {
	rc, err := tables.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading remote metadata: %w", err)
	}
	defer func() { _ = rc.Close() }()

	var stats map[string]remoteStats
	if err := json.NewDecoder(rc).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decoding remote metadata %s: %w", path, err)
	}
	return stats, nil
}

// LoadFrequencies reads the count tables. Any of the paths may be empty.
func LoadFrequencies(src CountSources) (*FrequencyTable, error) {
	counts := make(map[graph.PropertyID]Counts)

	load := func(path, name string, set func(*Counts, int64)) error {
		if path == "" {
			return nil
		}
		err := tables.ReadFile(path, edgeColumns, func(r tables.Row) error {
			n, err := strconv.ParseInt(strings.TrimSpace(r.Get("node2")), 10, 64)
			if err != nil {
				return fmt.Errorf("parsing count %q: %w", r.Get("node2"), err)
			}
			id := graph.PropertyID(r.Get("node1"))
			c := counts[id]
			set(&c, n)
			counts[id] = c
			return nil
		})
		if err != nil {
			return fmt.Errorf("loading %s counts: %w", name, err)
		}
		return nil
	}

	if err := load(src.Claims, "claims", func(c *Counts, n int64) { c.MainValue = n }); err != nil {
		return nil, err
	}
	if err := load(src.Qualifiers, "qualifier", func(c *Counts, n int64) { c.Qualifier = n }); err != nil {
		return nil, err
	}
	if err := load(src.Total, "total", func(c *Counts, n int64) { c.Total = n }); err != nil {
		return nil, err
	}

	return NewFrequencyTable(counts), nil
}
