// Package main provides an exporter plugin that writes the rotations of
// a recorded take as delimited text, one row per frame and four columns
// (x, y, z, w) per bone. Bones come in hierarchy order, followed by the
// bones the engine adds to frames when the tree lacks them (a synthetic
// neck, for example), sorted by name.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Request represents the input from the plugin executor.
type Request struct {
	Format    string            `json:"format"`
	Hierarchy json.RawMessage   `json:"hierarchy"`
	Frames    []json.RawMessage `json:"frames"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Data        string `json:"data,omitempty"`
}

type node struct {
	Name     string  `json:"name"`
	Children []*node `json:"children"`
}

type quat struct {
	X, Y, Z, W float64
}

type frame struct {
	Seq       uint64          `json:"seq"`
	Rotations map[string]quat `json:"rotations"`
}

var delimiters = map[string]struct {
	comma       rune
	contentType string
}{
	"csv": {',', "text/csv"},
	"tsv": {'\t', "text/tab-separated-values"},
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	out, err := export(&req)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}
	writeResponse(Response{Success: true, ContentType: delimiters[req.Format].contentType, Data: out})
}

func export(req *Request) (string, error) {
	d, ok := delimiters[req.Format]
	if !ok {
		return "", fmt.Errorf("unsupported format: %s", req.Format)
	}

	var root node
	if err := json.Unmarshal(req.Hierarchy, &root); err != nil {
		return "", fmt.Errorf("invalid hierarchy: %v", err)
	}
	frames := make([]frame, len(req.Frames))
	for i, raw := range req.Frames {
		if err := json.Unmarshal(raw, &frames[i]); err != nil {
			return "", fmt.Errorf("frame %d: %v", i, err)
		}
	}
	bones := boneOrder(&root, frames)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = d.comma

	header := []string{"seq"}
	for _, b := range bones {
		header = append(header, b+".x", b+".y", b+".z", b+".w")
	}
	w.Write(header)

	for _, f := range frames {
		row := []string{strconv.FormatUint(f.Seq, 10)}
		for _, b := range bones {
			q, ok := f.Rotations[b]
			if !ok {
				q = quat{W: 1}
			}
			row = append(row, num(q.X), num(q.Y), num(q.Z), num(q.W))
		}
		w.Write(row)
	}
	w.Flush()
	return buf.String(), w.Error()
}

// boneOrder lists the hierarchy depth first, then every other bone that
// appears in a frame.
func boneOrder(root *node, frames []frame) []string {
	var names []string
	seen := map[string]bool{}
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		names = append(names, n.Name)
		seen[n.Name] = true
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)

	var extra []string
	for _, f := range frames {
		for b := range f.Rotations {
			if !seen[b] {
				seen[b] = true
				extra = append(extra, b)
			}
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// writeResponse writes resp to stdout.
func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
