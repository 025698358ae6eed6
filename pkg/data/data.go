// Package data provides the dataset bindings a hyperparameter document can
// name. Datasets are read from local JSON-lines files, one graph record per
// line; download and molecule parsing happen upstream of this tool.
package data

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	mat "github.com/nlpodyssey/spago/pkg/mat32"

	"molnet/pkg/graph"
	"molnet/pkg/hyper"
	"molnet/pkg/registry"
)

// Register wires the bundled dataset bindings and post-construction
// methods into the registry.
func Register(r *registry.Registry) {
	r.RegisterDataset("GraphFileDataset", makeGraphFileDataset)
	r.RegisterDataset("ESOLDataset", preset("esol.jsonl"))
	r.RegisterDataset("MUTAGDataset", preset("mutag.jsonl"))
	r.RegisterDataset("PROTEINSDataset", preset("proteins.jsonl"))
	r.RegisterDatasetMethod("set_attributes", setAttributes)
}

// Build constructs the dataset a document names and applies its methods.
func Build(r *registry.Registry, spec *hyper.DatasetSpec) (registry.Dataset, error) {
	builder, err := r.Dataset(spec.ClassName)
	if err != nil {
		return nil, err
	}
	ds, err := builder(spec)
	if err != nil {
		return nil, err
	}
	for i, m := range spec.Methods {
		method, err := r.DatasetMethod(m.Name)
		if err != nil {
			return nil, err
		}
		if err := method(ds, m.Args); err != nil {
			return nil, fmt.Errorf("data: method %q (entry %d): %w", m.Name, i, err)
		}
	}
	return ds, nil
}

// ParseError is one bad record in a source file. Loading continues past
// it; callers decide whether the remainder is enough to train on.
type ParseError struct {
	Line int
	Err  error
}

// FileDataset reads graph samples from a JSON-lines file. Records carry
// named ragged properties; set_attributes chooses which properties feed
// the node and edge attributes.
type FileDataset struct {
	name    string
	nodeKey string
	edgeKey string
	records []map[string]json.RawMessage
	errors  []ParseError

	samples []*graph.Graph
}

func makeGraphFileDataset(spec *hyper.DatasetSpec) (registry.Dataset, error) {
	if spec.Config.FilePath == "" {
		return nil, &hyper.SchemaError{Field: "data.dataset.config.file_path", Reason: "required"}
	}
	return open(spec.ClassName, filepath.Join(spec.Config.DataDirectory, spec.Config.FilePath))
}

// preset builds a named dataset with a conventional file name that
// file_path can still override.
func preset(defaultFile string) registry.DatasetBuilder {
	return func(spec *hyper.DatasetSpec) (registry.Dataset, error) {
		path := spec.Config.FilePath
		if path == "" {
			path = defaultFile
		}
		return open(spec.ClassName, filepath.Join(spec.Config.DataDirectory, path))
	}
}

func open(name, path string) (*FileDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: opening dataset file: %w", err)
	}
	defer f.Close()

	ds := &FileDataset{
		name:    name,
		nodeKey: graph.NodeAttributes,
		edgeKey: graph.EdgeAttributes,
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var record map[string]json.RawMessage
		if err := json.Unmarshal(text, &record); err != nil {
			ds.errors = append(ds.errors, ParseError{Line: line, Err: err})
			continue
		}
		ds.records = append(ds.records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("data: reading dataset file: %w", err)
	}
	if len(ds.records) == 0 {
		return nil, fmt.Errorf("data: dataset file %s has no usable records", path)
	}
	return ds, nil
}

func (d *FileDataset) Name() string { return d.name }

// Bindings reports the record properties currently feeding the graph
// fields.
func (d *FileDataset) Bindings() graph.Bindings {
	return graph.Bindings{Nodes: d.nodeKey, Edges: d.edgeKey, EdgeIndices: graph.EdgeIndices}
}

// Errors reports the records skipped while reading the source file.
func (d *FileDataset) Errors() []ParseError { return d.errors }

// Samples materializes the graph samples, once.
func (d *FileDataset) Samples() ([]*graph.Graph, error) {
	if d.samples != nil {
		return d.samples, nil
	}
	samples := make([]*graph.Graph, 0, len(d.records))
	for i, record := range d.records {
		g, err := d.materialize(record)
		if err != nil {
			return nil, fmt.Errorf("data: record %d: %w", i, err)
		}
		samples = append(samples, g)
	}
	d.samples = samples
	return samples, nil
}

func (d *FileDataset) materialize(record map[string]json.RawMessage) (*graph.Graph, error) {
	g := &graph.Graph{}

	raw, ok := record[d.nodeKey]
	if !ok {
		return nil, fmt.Errorf("property %q missing", d.nodeKey)
	}
	if err := json.Unmarshal(raw, &g.NodeAttributes); err != nil {
		return nil, fmt.Errorf("property %q: %w", d.nodeKey, err)
	}

	if raw, ok := record[d.edgeKey]; ok {
		if err := json.Unmarshal(raw, &g.EdgeAttributes); err != nil {
			return nil, fmt.Errorf("property %q: %w", d.edgeKey, err)
		}
	}
	if raw, ok := record[graph.EdgeIndices]; ok {
		if err := json.Unmarshal(raw, &g.EdgeIndices); err != nil {
			return nil, fmt.Errorf("property %q: %w", graph.EdgeIndices, err)
		}
	}

	raw, ok = record["graph_labels"]
	if !ok {
		return nil, fmt.Errorf("property %q missing", "graph_labels")
	}
	var labels []mat.Float
	if err := json.Unmarshal(raw, &labels); err != nil {
		// A scalar label is accepted and widened to a one-element vector.
		var scalar mat.Float
		if err2 := json.Unmarshal(raw, &scalar); err2 != nil {
			return nil, fmt.Errorf("property %q: %w", "graph_labels", err)
		}
		labels = []mat.Float{scalar}
	}
	g.Targets = labels

	if err := g.Check(); err != nil {
		return nil, err
	}
	return g, nil
}

type setAttributesArgs struct {
	Nodes string `json:"nodes,omitempty"`
	Edges string `json:"edges,omitempty"`
}

// setAttributes rebinds which record properties become the node and edge
// attributes, e.g. {"set_attributes": {"nodes": "node_labels"}}.
func setAttributes(ds registry.Dataset, args []byte) error {
	fd, ok := ds.(*FileDataset)
	if !ok {
		return fmt.Errorf("set_attributes applies to file datasets only, got %T", ds)
	}
	var a setAttributesArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return fmt.Errorf("parsing args: %w", err)
		}
	}
	if a.Nodes != "" {
		fd.nodeKey = a.Nodes
	}
	if a.Edges != "" {
		fd.edgeKey = a.Edges
	}
	fd.samples = nil
	return nil
}
