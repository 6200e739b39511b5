package export

import (
	"context"
	"fmt"
	"sync"

	"github.com/signalsfoundry/ppl-reader/model"
)

// Records is a string-valued table.
type Records struct {
	Columns []string
	Rows    [][]string
}

// MemorySink keeps everything written to it. It is safe for concurrent use.
type MemorySink struct {
	mu         sync.Mutex
	attributes map[string]any
	attrOrder  []string
	tables     map[string]*model.Table
	records    map[string]Records
	paths      []string
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		attributes: make(map[string]any),
		tables:     make(map[string]*model.Table),
		records:    make(map[string]Records),
	}
}

func (m *MemorySink) Name() string { return "memory" }

func (m *MemorySink) SetAttribute(_ context.Context, name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attributes[name]; !ok {
		m.attrOrder = append(m.attrOrder, name)
	}
	m.attributes[name] = value
	return nil
}

func (m *MemorySink) WriteTable(_ context.Context, path string, t *model.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claim(path); err != nil {
		return err
	}
	m.tables[path] = t
	return nil
}

func (m *MemorySink) WriteRecords(_ context.Context, path string, columns []string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claim(path); err != nil {
		return err
	}
	m.records[path] = Records{Columns: columns, Rows: rows}
	return nil
}

func (m *MemorySink) claim(path string) error {
	_, t := m.tables[path]
	_, r := m.records[path]
	if t || r {
		return fmt.Errorf("path %s already written", path)
	}
	m.paths = append(m.paths, path)
	return nil
}

// Attribute returns a stored attribute.
func (m *MemorySink) Attribute(name string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.attributes[name]
	return v, ok
}

// AttributeNames returns attribute names in write order.
func (m *MemorySink) AttributeNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.attrOrder...)
}

// Paths returns table and record paths in write order.
func (m *MemorySink) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

// Table returns the numeric table stored at path.
func (m *MemorySink) Table(path string) (*model.Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[path]
	return t, ok
}

// Records returns the record table stored at path.
func (m *MemorySink) Records(path string) (Records, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[path]
	return r, ok
}
