// Package datasettest writes a small on-disk dataset for tests.
//
// The fixture holds seven properties:
//
//	P569  "date of birth"  time            P569 -P1696-> P570
//	P570  "date of death"  time            P569 -P1659-> P19
//	P19   "place of birth" wikibase-item   P580 -P1647-> P585
//	P580  "start time"     time
//	P582  "end time"       time            P580 conflicts with P585
//	P585  "point in time"  time            P1082 allows P585, requires P585
//	P1082 "population"     quantity        P570 is noitem
package datasettest

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Benny93/propfinder-go/internal/dataset"
)

var fixture = map[string]string{
	"labels.tsv.gz": `node1	label	node2
P569	label	'date of birth'@en
P570	label	'date of death'@en
P19	label	'place of birth'@en
P580	label	'start time'@en
P582	label	'end time'@en
P585	label	'point in time'@en
P1082	label	'population'@en
`,
	"aliases.tsv": `node1	label	node2
P569	alias	'birth date'@en
P569	alias	'born on'@en
P570	alias	'death date'@en
`,
	"descriptions.tsv": `node1	label	node2
P569	description	'date on which the subject was born'@en
P19	description	'most specific known birth location of a person'@en
P1082	description	'number of people inhabiting the place'@en
`,
	"datatypes.tsv": `node1	label	node2
P569	datatype	time
P570	datatype	time
P19	datatype	wikibase-item
P580	datatype	time
P582	datatype	time
P585	datatype	time
P1082	datatype	quantity
`,
	"metadata.json": `{
  "P569": {"pagerank": 0.0004, "statements": 6100000},
  "P19": {"pagerank": 0.0002, "statements": 3300000}
}`,
	"claims.counts.tsv": `node1	label	node2
P569	count	6100000
P570	count	2800000
P19	count	3300000
P1082	count	600000
`,
	"qualifiers.counts.tsv": `node1	label	node2
P580	count	9000000
P582	count	4000000
P585	count	12000000
`,
	"total.counts.tsv": `node1	label	node2
P569	count	6100100
P585	count	12200000
`,
	"claims.properties.tsv": `node1	label	node2
P569	P1696	P570
P569	P1659	P19
P580	P1647	P585
P580	P31	Q18636219
`,
	"constraints.json": `{
  "P570": {"noitem": true},
  "P580": {"conflicts": ["P585"]},
  "P1082": {"allowed_qualifiers": ["P585", "P580"], "required_qualifiers": ["P585"]},
  "P19": {"scope": ["V"], "scope_man": true}
}`,
	"words.txt": "of\nthe\ndate\nbirth\ntime\nplace\nstart\nend\npoint\nin\ndeath\npopulation\n",
}

// Files returns the file layout Write produces under dir.
func Files(dir string) dataset.Files {
	files := dataset.DefaultFiles(dir)
	files.Labels = "labels.tsv.gz"
	files.Aliases = "aliases.tsv"
	files.Descriptions = "descriptions.tsv"
	files.Datatypes = "datatypes.tsv"
	files.Metadata = "metadata.json"
	files.ClaimsCounts = "claims.counts.tsv"
	files.QualifiersCounts = "qualifiers.counts.tsv"
	files.TotalCounts = "total.counts.tsv"
	files.ClaimsProperties = "claims.properties.tsv"
	files.Constraints = "constraints.json"
	files.Words = "words.txt"
	return files
}

// Write writes the fixture into dir and returns its file layout.
func Write(tb testing.TB, dir string) dataset.Files {
	tb.Helper()
	for name, content := range fixture {
		WriteFile(tb, filepath.Join(dir, name), content)
	}
	return Files(dir)
}

// WriteFile writes content to path, gzipping it when path ends in ".gz".
func WriteFile(tb testing.TB, path, content string) {
	tb.Helper()
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("creating %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	if !strings.HasSuffix(path, ".gz") {
		if _, err := f.WriteString(content); err != nil {
			tb.Fatalf("writing %s: %v", path, err)
		}
		return
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		tb.Fatalf("writing %s: %v", path, err)
	}
	if err := gz.Close(); err != nil {
		tb.Fatalf("closing %s: %v", path, err)
	}
}

// Load writes the fixture into a temporary directory and loads it.
func Load(tb testing.TB) *dataset.Snapshot {
	tb.Helper()
	snap, err := dataset.Load(Write(tb, tb.TempDir()), nil)
	if err != nil {
		tb.Fatalf("loading fixture: %v", err)
	}
	return snap
}
