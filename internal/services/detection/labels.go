// Package detection holds model-independent helpers shared by the detector backends.
package detection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Labels maps detector class ids to names. Index i is the name of class i.
type Labels []string

// ParseLabels reads one label per line. Blank lines and lines starting with
// '#' are skipped; "id name" lines place the name at that id.
func ParseLabels(r io.Reader) (Labels, error) {
	var labels Labels
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var id int
		var name string
		if n, _ := fmt.Sscanf(line, "%d %s", &id, &name); n == 2 && id >= 0 {
			// keep multi-word names such as "wine glass"
			name = strings.TrimSpace(line[strings.Index(line, " ")+1:])
			for len(labels) <= id {
				labels = append(labels, "")
			}
			labels[id] = name
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file is empty")
	}
	return labels, nil
}

func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels %s: %w", path, err)
	}
	defer f.Close()
	return ParseLabels(f)
}

// Name returns the label for id, or "class_<id>" when unknown.
func (l Labels) Name(id int) string {
	if id >= 0 && id < len(l) && l[id] != "" {
		return l[id]
	}
	return fmt.Sprintf("class_%d", id)
}
