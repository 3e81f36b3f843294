package binary

import (
	"github.com/wavmgo/wavm/internal/leb128"
	"github.com/wavmgo/wavm/internal/wasm"
)

// Name-section subsection ids, grounded on the standard "name" custom
// section layout (one subsection per index space).
const (
	nameSubsectionModule = iota
	nameSubsectionFunction
	nameSubsectionLocal
	nameSubsectionLabel
	nameSubsectionType
	nameSubsectionTable
	nameSubsectionMemory
	nameSubsectionGlobal
	nameSubsectionElem
	nameSubsectionData
)

// decodeNameSection parses the contents of a custom section named "name"
// (data is everything after the section's own name string) into a
// DisassemblyNames. Unknown subsection ids are skipped, matching the
// standard's forward-compatibility rule: producers may add subsections a
// consumer does not recognize.
func decodeNameSection(data []byte) (*wasm.DisassemblyNames, error) {
	d := &decoder{buf: data}
	names := &wasm.DisassemblyNames{}
	for d.pos < len(data) {
		id, err := d.byte()
		if err != nil {
			return nil, err
		}
		size, err := d.u32()
		if err != nil {
			return nil, err
		}
		end := d.pos + int(size)
		if end > len(data) {
			return nil, d.malformed("name subsection exceeds section data")
		}
		switch id {
		case nameSubsectionModule:
			if names.ModuleName, err = d.name(); err != nil {
				return nil, err
			}
		case nameSubsectionFunction:
			if names.Functions, err = d.decodeNameMap(); err != nil {
				return nil, err
			}
		case nameSubsectionLocal:
			if names.Locals, err = d.decodeIndirectNameMap(); err != nil {
				return nil, err
			}
		case nameSubsectionLabel:
			if names.Labels, err = d.decodeIndirectNameMap(); err != nil {
				return nil, err
			}
		case nameSubsectionType:
			if names.Types, err = d.decodeNameMap(); err != nil {
				return nil, err
			}
		case nameSubsectionTable:
			if names.Tables, err = d.decodeNameMap(); err != nil {
				return nil, err
			}
		case nameSubsectionMemory:
			if names.Memories, err = d.decodeNameMap(); err != nil {
				return nil, err
			}
		case nameSubsectionGlobal:
			if names.Globals, err = d.decodeNameMap(); err != nil {
				return nil, err
			}
		case nameSubsectionElem:
			if names.Elems, err = d.decodeNameMap(); err != nil {
				return nil, err
			}
		case nameSubsectionData:
			if names.Data, err = d.decodeNameMap(); err != nil {
				return nil, err
			}
		}
		d.pos = end
	}
	return names, nil
}

func (d *decoder) decodeNameMap() (map[wasm.Index]string, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make(map[wasm.Index]string, n)
	for i := uint32(0); i < n; i++ {
		idx, err := d.u32()
		if err != nil {
			return nil, err
		}
		nm, err := d.name()
		if err != nil {
			return nil, err
		}
		out[idx] = nm
	}
	return out, nil
}

func (d *decoder) decodeIndirectNameMap() (map[wasm.Index]map[wasm.Index]string, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make(map[wasm.Index]map[wasm.Index]string, n)
	for i := uint32(0); i < n; i++ {
		idx, err := d.u32()
		if err != nil {
			return nil, err
		}
		inner, err := d.decodeNameMap()
		if err != nil {
			return nil, err
		}
		out[idx] = inner
	}
	return out, nil
}

// encodeNameSection renders names as the body of a "name" custom section
// (without the leading custom-section name-string prefix, which Encode
// writes via encodeName).
func encodeNameSection(names *wasm.DisassemblyNames) []byte {
	var out []byte
	if names.ModuleName != "" {
		out = append(out, encodeNameSubsection(nameSubsectionModule, encodeName(names.ModuleName))...)
	}
	if len(names.Functions) > 0 {
		out = append(out, encodeNameSubsection(nameSubsectionFunction, encodeNameMap(names.Functions))...)
	}
	if len(names.Locals) > 0 {
		out = append(out, encodeNameSubsection(nameSubsectionLocal, encodeIndirectNameMap(names.Locals))...)
	}
	if len(names.Labels) > 0 {
		out = append(out, encodeNameSubsection(nameSubsectionLabel, encodeIndirectNameMap(names.Labels))...)
	}
	if len(names.Types) > 0 {
		out = append(out, encodeNameSubsection(nameSubsectionType, encodeNameMap(names.Types))...)
	}
	if len(names.Tables) > 0 {
		out = append(out, encodeNameSubsection(nameSubsectionTable, encodeNameMap(names.Tables))...)
	}
	if len(names.Memories) > 0 {
		out = append(out, encodeNameSubsection(nameSubsectionMemory, encodeNameMap(names.Memories))...)
	}
	if len(names.Globals) > 0 {
		out = append(out, encodeNameSubsection(nameSubsectionGlobal, encodeNameMap(names.Globals))...)
	}
	if len(names.Elems) > 0 {
		out = append(out, encodeNameSubsection(nameSubsectionElem, encodeNameMap(names.Elems))...)
	}
	if len(names.Data) > 0 {
		out = append(out, encodeNameSubsection(nameSubsectionData, encodeNameMap(names.Data))...)
	}
	return out
}

func encodeNameSubsection(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, leb128.EncodeUint32(uint32(len(body)))...)
	return append(out, body...)
}

func encodeName(s string) []byte {
	out := leb128.EncodeUint32(uint32(len(s)))
	return append(out, s...)
}

// encodeNameMap renders a name map in ascending index order: the standard
// requires entries sorted by index, and a map has no inherent order.
func encodeNameMap(m map[wasm.Index]string) []byte {
	idxs := sortedIndices(m)
	out := leb128.EncodeUint32(uint32(len(idxs)))
	for _, idx := range idxs {
		out = append(out, leb128.EncodeUint32(idx)...)
		out = append(out, encodeName(m[idx])...)
	}
	return out
}

func encodeIndirectNameMap(m map[wasm.Index]map[wasm.Index]string) []byte {
	idxs := sortedIndices(m)
	out := leb128.EncodeUint32(uint32(len(idxs)))
	for _, idx := range idxs {
		out = append(out, leb128.EncodeUint32(idx)...)
		out = append(out, encodeNameMap(m[idx])...)
	}
	return out
}

func sortedIndices[V any](m map[wasm.Index]V) []wasm.Index {
	out := make([]wasm.Index, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
