package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/jasm/compiler"
	"github.com/chazu/jasm/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "jasm-lsp"

// LspServer provides editor features for JASM source files.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
	log     commonlog.Logger
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: vm.Version,
		log:     commonlog.GetLogger("jasm.lsp"),
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("JASM LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"(", ","},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return complete(text, params.Position), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return hover(text, params.Position), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	loc := definition(uri, text, params.Position)
	if loc == nil {
		return nil, nil
	}
	return loc, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	return references(uri, text, params.Position, params.Context.IncludeDeclaration), nil
}

// --- Source-backed logic ---

// complete offers mnemonics at the start of a line, registers and
// constants inside $( ), and registers elsewhere.
func complete(text string, pos protocol.Position) []protocol.CompletionItem {
	line := lineAt(text, pos.Line)
	col := clampCol(line, pos.Character)
	prefix := extractPrefix(text, pos)
	before := line[:col-len(prefix)]
	lowerPrefix := strings.ToLower(prefix)

	var items []protocol.CompletionItem
	add := func(label, detail string, kind protocol.CompletionItemKind, doc string) {
		if !strings.HasPrefix(strings.ToLower(label), lowerPrefix) {
			return
		}
		item := protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		}
		if doc != "" {
			item.Documentation = doc
		}
		items = append(items, item)
	}

	switch {
	case strings.TrimSpace(before) == "":
		if prefix == "" {
			return nil
		}
		for _, m := range vm.Mnemonics {
			add(m.Name, m.Syntax, protocol.CompletionItemKindKeyword, m.Summary)
		}
	case strings.HasSuffix(before, "$("):
		for _, r := range vm.Registers() {
			add(r.String(), "register", protocol.CompletionItemKindVariable, "")
		}
		env := vm.NewEnvironment()
		for _, name := range env.Constants() {
			v, _ := env.Constant(name)
			add(name, "constant = "+v.String(), protocol.CompletionItemKindConstant, "")
		}
	default:
		if !operandPosition(before) {
			return nil
		}
		for _, r := range vm.Registers() {
			add(r.String(), "register", protocol.CompletionItemKindVariable, "")
		}
	}
	return items
}

// operandPosition reports whether the text before the cursor ends where an
// operand can start: after the mnemonic or after a comma.
func operandPosition(before string) bool {
	trimmed := strings.TrimRightFunc(before, unicode.IsSpace)
	if strings.HasSuffix(trimmed, ",") {
		return true
	}
	return len(trimmed) < len(before) && !strings.ContainsAny(strings.TrimSpace(trimmed), " \t,")
}

func hover(text string, pos protocol.Position) *protocol.Hover {
	word := extractWord(text, pos)
	if word == "" {
		return nil
	}

	var b strings.Builder
	if m, ok := vm.LookupMnemonic(word); ok && isMnemonicPosition(text, pos) {
		fmt.Fprintf(&b, "**%s**\n\n`%s`\n\n%s", m.Name, m.Syntax, m.Summary)
		if m.Alias != "" {
			fmt.Fprintf(&b, "\n\nAlias of `%s`.", m.Alias)
		}
	} else if r, ok := vm.LookupRegister(word); ok {
		fmt.Fprintf(&b, "**%s** register", r)
		if u, ok := lastWrite(text, r, int(pos.Line)+1); ok {
			fmt.Fprintf(&b, "\n\nLast written on line %d.", u.Line)
		} else {
			b.WriteString("\n\nNot written above this line; reads as unset.")
		}
	} else if v, ok := vm.NewEnvironment().Constant(word); ok {
		fmt.Fprintf(&b, "**%s** constant\n\n`%s` (%s)", word, v, v.Kind())
	} else {
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// definition finds the last write to the register under the cursor at or
// above the cursor's line.
func definition(uri protocol.DocumentUri, text string, pos protocol.Position) []protocol.Location {
	r, ok := vm.LookupRegister(extractWord(text, pos))
	if !ok {
		return nil
	}
	u, ok := lastWrite(text, r, int(pos.Line)+1)
	if !ok {
		return nil
	}
	return []protocol.Location{useLocation(uri, u)}
}

// references lists every operand naming the register under the cursor.
func references(uri protocol.DocumentUri, text string, pos protocol.Position, includeWrites bool) []protocol.Location {
	r, ok := vm.LookupRegister(extractWord(text, pos))
	if !ok {
		return nil
	}

	var locations []protocol.Location
	seen := make(map[[2]int]bool)
	for _, u := range compiler.Uses(text) {
		if u.Register != r || (u.Write && !includeWrites) {
			continue
		}
		key := [2]int{u.Line, u.Col}
		if seen[key] {
			continue
		}
		seen[key] = true
		locations = append(locations, useLocation(uri, u))
	}
	return locations
}

func lastWrite(text string, r vm.Register, line int) (compiler.Use, bool) {
	var found compiler.Use
	ok := false
	for _, u := range compiler.Uses(text) {
		if u.Line > line {
			break
		}
		if u.Write && u.Register == r {
			found, ok = u, true
		}
	}
	return found, ok
}

func useLocation(uri protocol.DocumentUri, u compiler.Use) protocol.Location {
	return protocol.Location{
		URI: uri,
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(u.Line - 1), Character: protocol.UInteger(u.Col)},
			End:   protocol.Position{Line: protocol.UInteger(u.Line - 1), Character: protocol.UInteger(u.EndCol)},
		},
	}
}

func isMnemonicPosition(text string, pos protocol.Position) bool {
	line := lineAt(text, pos.Line)
	col := clampCol(line, pos.Character)
	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	return strings.TrimSpace(line[:start]) == ""
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diags := compiler.Check(text)
	s.log.Debugf("%s: %d diagnostics", uri, len(diags))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toProtocolDiagnostics(diags),
	})
}

func toProtocolDiagnostics(diags []compiler.Diagnostic) []protocol.Diagnostic {
	source := lspName
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		severity := protocol.DiagnosticSeverity(d.Severity)
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(d.Line - 1), Character: protocol.UInteger(d.Col)},
				End:   protocol.Position{Line: protocol.UInteger(d.Line - 1), Character: protocol.UInteger(d.EndCol)},
			},
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out
}

// --- Text extraction helpers ---

func lineAt(text string, n protocol.UInteger) string {
	lines := strings.Split(text, "\n")
	if int(n) >= len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[n], "\r")
}

func clampCol(line string, c protocol.UInteger) int {
	col := int(c)
	if col > len(line) {
		col = len(line)
	}
	return col
}

func isWordChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line := lineAt(text, pos.Line)
	col := clampCol(line, pos.Character)

	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line := lineAt(text, pos.Line)
	col := clampCol(line, pos.Character)

	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isWordChar(rune(line[end])) {
		end++
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
