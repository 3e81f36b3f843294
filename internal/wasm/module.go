package wasm

import "fmt"

// Index is an unsigned index into one of a Module's index spaces.
type Index = uint32

// ExternType classifies an import or export by which index space it
// addresses.
type ExternType byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// ExternTypeName renders the WebAssembly text keyword for et.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return "func"
	case ExternTypeTable:
		return "table"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeGlobal:
		return "global"
	default:
		return fmt.Sprintf("0x%x", byte(et))
	}
}

// SectionID numbers the standard binary format sections, also used to order
// CustomSection.AfterSection markers (I5).
type SectionID byte

const (
	SectionIDCustom SectionID = iota
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
	SectionIDDataCount
	SectionIDTag // exception-handling proposal
)

// SectionIDName renders the section id for diagnostics.
func SectionIDName(id SectionID) string {
	switch id {
	case SectionIDCustom:
		return "custom"
	case SectionIDType:
		return "type"
	case SectionIDImport:
		return "import"
	case SectionIDFunction:
		return "function"
	case SectionIDTable:
		return "table"
	case SectionIDMemory:
		return "memory"
	case SectionIDGlobal:
		return "global"
	case SectionIDExport:
		return "export"
	case SectionIDStart:
		return "start"
	case SectionIDElement:
		return "element"
	case SectionIDCode:
		return "code"
	case SectionIDData:
		return "data"
	case SectionIDDataCount:
		return "data count"
	case SectionIDTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Import is the common shape of an entry in the imports prefix of any
// IndexSpace: a module/name pair plus the external type being imported.
type Import[Ty any] struct {
	Module, Name string
	Type         Ty
}

// IndexSpace is a two-segment array: an imports prefix (each carrying a
// module name, an export name, and an external type Ty) followed by a defs
// suffix (each carrying an internal definition of type Def). Index 0
// addresses the first import; imports always precede defs (GLOSSARY
// "IndexSpace").
type IndexSpace[Def any, Ty any] struct {
	Imports []Import[Ty]
	Defs    []Def
}

// Size returns the total number of entries across both segments.
func (s *IndexSpace[Def, Ty]) Size() uint32 {
	return uint32(len(s.Imports) + len(s.Defs))
}

// IsImport reports whether idx addresses the imports prefix rather than a
// def.
func (s *IndexSpace[Def, Ty]) IsImport(idx Index) bool {
	return idx < uint32(len(s.Imports))
}

// Def returns the definition at idx, which must not be an import (see
// IsImport).
func (s *IndexSpace[Def, Ty]) Def(idx Index) *Def {
	return &s.Defs[idx-uint32(len(s.Imports))]
}

// GetType returns the external type of the entry at idx, whether it is an
// import (Type field of the Import) or a def, via getDefType.
func (s *IndexSpace[Def, Ty]) GetType(idx Index, getDefType func(*Def) Ty) Ty {
	if s.IsImport(idx) {
		return s.Imports[idx].Type
	}
	return getDefType(s.Def(idx))
}

// TableType describes a table's element type, index representation, and
// size bounds.
type TableType struct {
	ElementType ValueType // always a reference type
	Shared      bool
	Index64     bool // index type is i64 instead of the default i32
	Min         uint64
	Max         uint64 // MaxUnbounded if unset
}

// MaxUnbounded is the sentinel meaning "no declared maximum".
const MaxUnbounded = ^uint64(0)

// MemoryType describes a linear memory's index representation and page
// count bounds (pages are 64KiB).
type MemoryType struct {
	Shared  bool
	Index64 bool
	Min     uint64
	Max     uint64 // MaxUnbounded if unset
}

// GlobalType is a value type plus mutability flag.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// InitExprOpcode tags the legal forms of InitializerExpression.
type InitExprOpcode byte

const (
	InitExprI32Const InitExprOpcode = iota
	InitExprI64Const
	InitExprF32Const
	InitExprF64Const
	InitExprV128Const
	InitExprGlobalGet
	InitExprRefNull
	InitExprRefFunc
)

// InitializerExpression is a tagged variant of the only constant-expression
// forms the WebAssembly standard allows in global initializers and segment
// base offsets.
type InitializerExpression struct {
	Opcode InitExprOpcode
	I32    int32
	I64    int64
	F32    uint32 // raw bits
	F64    uint64 // raw bits
	V128   [16]byte
	Index  uint32     // GlobalGet or RefFunc operand
	RefType ValueType // RefNull operand
}

// GlobalDef is the internal definition of a module-local global: its type
// and its initializer.
type GlobalDef struct {
	Type GlobalType
	Init InitializerExpression
}

// FunctionDef is the internal definition of a module-local function: an
// index into TypeSection, the sequence of non-parameter local types, a
// validated operator byte stream, and any branch tables the body's
// br_table instructions reference.
type FunctionDef struct {
	TypeIndex  Index
	LocalTypes []ValueType
	Body       []byte
	BranchTables [][]uint32
}

// TableDef is the internal definition of a module-local table.
type TableDef struct {
	Type TableType
}

// MemoryDef is the internal definition of a module-local memory.
type MemoryDef struct {
	Type MemoryType
}

// ExceptionType is the signature of an exception tag: a parameter list with
// no results (exception-handling proposal).
type ExceptionType struct {
	Params []ValueType
}

// ExceptionTypeDef is the internal definition of a module-local exception
// type.
type ExceptionTypeDef struct {
	Type ExceptionType
}

// Export names an entry of one of the module's index spaces.
type Export struct {
	Name string
	Type ExternType
	Index Index
}

// ElemMode discriminates the three forms an element segment may take.
type ElemMode byte

const (
	ElemModeActive ElemMode = iota
	ElemModePassive
	ElemModeDeclared
)

// ElemExpr is one entry of an element segment's contents when expressed as
// expressions rather than raw indices: either ref.null or ref.func(idx).
type ElemExpr struct {
	IsNull bool
	Index  Index // valid iff !IsNull
}

// ElemSegment populates a table (active), is available to table.init
// (passive), or merely declares that its functions may be referenced from
// code (declared; never installed into a table).
type ElemSegment struct {
	Mode ElemMode
	Type ValueType // element type (a reference type)

	// TableIndex and OffsetExpr are only meaningful when Mode ==
	// ElemModeActive.
	TableIndex Index
	OffsetExpr InitializerExpression

	Exprs []ElemExpr
}

// DataSegment initializes a range of linear memory (active) or is available
// to memory.init (passive).
type DataSegment struct {
	Active bool

	// MemoryIndex and OffsetExpr are only meaningful when Active.
	MemoryIndex Index
	OffsetExpr  InitializerExpression

	Init []byte
}

// CustomSection is a user-defined section carried through unmodified.
// AfterSection records which standard section this custom section must be
// emitted after in binary output (I5).
type CustomSection struct {
	Name         string
	Data         []byte
	AfterSection SectionID
}

// DisassemblyNames is the parallel naming structure read from, or written
// to, the standard "name" custom section.
type DisassemblyNames struct {
	ModuleName string
	Functions  map[Index]string
	Locals     map[Index]map[Index]string
	Labels     map[Index]map[Index]string
	Types      map[Index]string
	Tables     map[Index]string
	Memories   map[Index]string
	Globals    map[Index]string
	Elems      map[Index]string
	Data       map[Index]string
	Exceptions map[Index]string
}

// Module is the IR root. It is built by the parser/decoder, read by the
// validator/encoder/printer, frozen once construction completes, and
// destroyed as one unit; there is no mutation outside a fresh rebuild (§3
// Lifecycle).
type Module struct {
	TypeSection []*FunctionType

	FunctionSpace      IndexSpace[FunctionDef, Index] // Ty = TypeSection index
	TableSpace         IndexSpace[TableDef, TableType]
	MemorySpace        IndexSpace[MemoryDef, MemoryType]
	GlobalSpace        IndexSpace[GlobalDef, GlobalType]
	ExceptionTypeSpace IndexSpace[ExceptionTypeDef, ExceptionType]

	ExportSection []Export
	StartFunction *Index

	DataSection []DataSegment
	ElemSection []ElemSegment

	CustomSections []CustomSection
	Names          *DisassemblyNames

	Features Features
}

// FunctionTypeIndex returns the TypeSection index of the function at idx in
// FunctionSpace.
func (m *Module) FunctionTypeIndex(idx Index) Index {
	return m.FunctionSpace.GetType(idx, func(d *FunctionDef) Index { return d.TypeIndex })
}

// FunctionType returns the signature of the function at idx in
// FunctionSpace.
func (m *Module) FunctionType(idx Index) *FunctionType {
	return m.TypeSection[m.FunctionTypeIndex(idx)]
}

// TableType returns the type of the table at idx in TableSpace.
func (m *Module) TableType(idx Index) TableType {
	return m.TableSpace.GetType(idx, func(d *TableDef) TableType { return d.Type })
}

// MemoryType returns the type of the memory at idx in MemorySpace.
func (m *Module) MemoryType(idx Index) MemoryType {
	return m.MemorySpace.GetType(idx, func(d *MemoryDef) MemoryType { return d.Type })
}

// GlobalType returns the type of the global at idx in GlobalSpace.
func (m *Module) GlobalType(idx Index) GlobalType {
	return m.GlobalSpace.GetType(idx, func(d *GlobalDef) GlobalType { return d.Type })
}

// ExceptionType returns the signature of the exception type at idx in
// ExceptionTypeSpace.
func (m *Module) ExceptionType(idx Index) ExceptionType {
	return m.ExceptionTypeSpace.GetType(idx, func(d *ExceptionTypeDef) ExceptionType { return d.Type })
}

// DedupType returns the index of ft within TypeSection, appending it if no
// equal signature is already present (§3 "Types are deduplicated at parse
// time").
func (m *Module) DedupType(ft *FunctionType) Index {
	for i, existing := range m.TypeSection {
		if existing.Equal(ft) {
			return Index(i)
		}
	}
	m.TypeSection = append(m.TypeSection, ft)
	return Index(len(m.TypeSection) - 1)
}

// Validate checks invariants I1-I5 and I7 hold for m. It does not run the
// per-function operand-stack validator; see ValidateFunctions for that.
func (m *Module) Validate() error {
	numTypes := Index(len(m.TypeSection))
	for i, d := range m.FunctionSpace.Defs {
		if d.TypeIndex >= numTypes {
			return fmt.Errorf("function %d: type index %d out of range (I2)", i, d.TypeIndex)
		}
	}
	for _, exp := range m.ExportSection {
		var size Index
		switch exp.Type {
		case ExternTypeFunc:
			size = m.FunctionSpace.Size()
		case ExternTypeTable:
			size = m.TableSpace.Size()
		case ExternTypeMemory:
			size = m.MemorySpace.Size()
		case ExternTypeGlobal:
			size = m.GlobalSpace.Size()
		default:
			return fmt.Errorf("export %q: unknown extern type %#x", exp.Name, exp.Type)
		}
		if exp.Index >= size {
			return fmt.Errorf("export %q: index %d out of range (I1)", exp.Name, exp.Index)
		}
	}
	if m.StartFunction != nil {
		if *m.StartFunction >= m.FunctionSpace.Size() {
			return fmt.Errorf("start function index %d out of range (I1)", *m.StartFunction)
		}
		ft := m.FunctionType(*m.StartFunction)
		if len(ft.Params) != 0 || len(ft.Results) != 0 {
			return fmt.Errorf("start function must have signature () -> () (I4)")
		}
	}
	for i, d := range m.DataSection {
		if d.Active && d.MemoryIndex >= m.MemorySpace.Size() {
			return fmt.Errorf("data segment %d: memory index %d out of range (I3)", i, d.MemoryIndex)
		}
	}
	for i, e := range m.ElemSection {
		if e.Mode == ElemModeActive && e.TableIndex >= m.TableSpace.Size() {
			return fmt.Errorf("elem segment %d: table index %d out of range (I3)", i, e.TableIndex)
		}
	}
	var lastAfter SectionID
	for i, cs := range m.CustomSections {
		if i > 0 && cs.AfterSection < lastAfter {
			return fmt.Errorf("custom section %q: afterSection marker out of order (I5)", cs.Name)
		}
		lastAfter = cs.AfterSection
	}
	if names := m.Names; names != nil {
		if err := validateNameIndices("function", names.Functions, m.FunctionSpace.Size()); err != nil {
			return err
		}
		if err := validateNameIndices("table", names.Tables, m.TableSpace.Size()); err != nil {
			return err
		}
		if err := validateNameIndices("memory", names.Memories, m.MemorySpace.Size()); err != nil {
			return err
		}
		if err := validateNameIndices("global", names.Globals, m.GlobalSpace.Size()); err != nil {
			return err
		}
		if err := validateNameIndices("type", names.Types, numTypes); err != nil {
			return err
		}
	}
	return nil
}

func validateNameIndices(space string, names map[Index]string, size Index) error {
	for idx := range names {
		if idx >= size {
			return fmt.Errorf("name section: %s index %d out of range (I7)", space, idx)
		}
	}
	return nil
}
