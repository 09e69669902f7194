package ingestion

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/54b3r/orangebot-go/internal/rag"
)

// maxLineBytes bounds one JSONL record.
const maxLineBytes = 4 << 20

// Record is one knowledge-base entry from the processed JSONL file.
type Record struct {
	ID       string
	Section  string
	Title    string
	Content  string
	Metadata map[string]string
}

// ReadStats counts what ReadJSONL kept and skipped.
type ReadStats struct {
	Lines   int
	Records int
	Invalid int
	Empty   int
}

// ReadJSONL parses one record per line. Blank and malformed lines are
// skipped, as are records without content.
func ReadJSONL(r io.Reader) ([]Record, ReadStats, error) {
	var (
		out   []Record
		stats ReadStats
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		stats.Lines++
		if !gjson.Valid(line) || !gjson.Parse(line).IsObject() {
			stats.Invalid++
			continue
		}
		rec := parseRecord(gjson.Parse(line))
		if strings.TrimSpace(rec.Content) == "" {
			stats.Empty++
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("ingestion: read jsonl: %w", err)
	}
	stats.Records = len(out)
	return out, stats, nil
}

func parseRecord(v gjson.Result) Record {
	return Record{
		ID:       v.Get("id").String(),
		Section:  v.Get("section").String(),
		Title:    v.Get("title").String(),
		Content:  v.Get("content").String(),
		Metadata: FlattenMetadata(v.Get("metadata")),
	}
}

// FlattenMetadata turns a JSON object into string tags: nested objects and
// arrays become their JSON text, scalars their string form. Null values are
// dropped.
func FlattenMetadata(obj gjson.Result) map[string]string {
	flat := make(map[string]string)
	if !obj.IsObject() {
		return flat
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		switch {
		case v.Type == gjson.Null:
		case v.IsObject(), v.IsArray():
			flat[k.String()] = v.Raw
		default:
			flat[k.String()] = v.String()
		}
		return true
	})
	return flat
}

// Document converts r into a stored document. section, title and id are
// merged into the metadata; a "source" tag becomes Document.Source, falling
// back to defaultSource. Records without an ID get one derived from their
// content.
func (r Record) Document(defaultSource string) rag.Document {
	meta := make(map[string]string, len(r.Metadata)+3)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	id := r.ID
	if id == "" {
		id = contentID(r.Content)
	}
	for k, v := range map[string]string{"section": r.Section, "title": r.Title, "id": id} {
		if v != "" {
			meta[k] = v
		}
	}

	source := meta["source"]
	delete(meta, "source")
	if source == "" {
		source = defaultSource
	}
	return rag.Document{ID: id, Content: r.Content, Source: source, Metadata: meta}
}

// contentID derives a stable ID from text.
func contentID(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h[:16])
}
