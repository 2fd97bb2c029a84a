// Package sema implements name resolution, mangling, and type checking
// over the parsed program tree, per spec.md §4.3. It keeps the
// reference compiler's SemanticAnalyzer shape (global table, scope
// stack, loop stack, current-function pointer) as an explicit struct
// rather than package-level state, same redesign as internal/lexer.
package sema

import (
	"fmt"

	"github.com/kementzetzidis/fractal/internal/ast"
	"github.com/kementzetzidis/fractal/internal/diag"
	"github.com/kementzetzidis/fractal/internal/types"
)

// Symbol is a resolved name: its globally-unique mangled name (equal to
// the source name for globals and locals, which this version does not
// mangle — see spec.md §9) and its type.
type Symbol struct {
	MangledName string
	Type        *types.Type
}

// Analyzer runs one compilation's semantic analysis. Everything the
// reference implementation kept as member fields on SemanticAnalyzer
// lives here: m_globalTable, m_localStack, m_loopStack,
// m_currentFunction, m_userDefinedTypes, plus the mangling/loop-id
// counters spec.md §9 moves off process-wide statics and onto this
// per-run context.
type Analyzer struct {
	sink *diag.Sink

	globalTable map[string]Symbol
	localStack  []map[string]Symbol
	loopStack   []ast.LoopID

	currentFunction *types.Type // Function type, nil at file scope
	userTypes       map[string]bool

	mangleCounter int
	loopCounter   int
}

// New creates an Analyzer reporting into sink.
func New(sink *diag.Sink) *Analyzer {
	return &Analyzer{
		sink:        sink,
		globalTable: make(map[string]Symbol),
		userTypes:   make(map[string]bool),
	}
}

// Analyze runs the full pass: definitions first, then top-level
// statements, matching SemanticAnalyzer::analyze's two loops. Unlike
// the reference, it does not abort on the first failing definition or
// statement — it keeps analyzing so the sink accumulates every
// diagnostic in one run, matching spec.md §7's "reports all errors
// collected so far".
func Analyze(program *ast.Program, sink *diag.Sink) bool {
	a := New(sink)
	ok := true
	for _, def := range program.Definitions {
		if !a.analyzeDefinition(def) {
			ok = false
		}
	}
	// Top-level statements form the body of the implicit `main`, so their
	// local definitions get a scope of their own.
	a.pushScope()
	for _, stmt := range program.Statements {
		if !a.analyzeStatement(stmt) {
			ok = false
		}
	}
	a.popScope()
	return ok
}

// -- scope management --

func (a *Analyzer) pushScope() {
	a.localStack = append(a.localStack, make(map[string]Symbol))
}

func (a *Analyzer) popScope() {
	a.localStack = a.localStack[:len(a.localStack)-1]
}

func (a *Analyzer) topScope() map[string]Symbol {
	return a.localStack[len(a.localStack)-1]
}

func (a *Analyzer) createUnique(name string) string {
	a.mangleCounter++
	return fmt.Sprintf("%s.%d", name, a.mangleCounter)
}

func (a *Analyzer) findLocal(name string) (Symbol, bool) {
	for i := len(a.localStack) - 1; i >= 0; i-- {
		if sym, ok := a.localStack[i][name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

func (a *Analyzer) pushLoop() ast.LoopID {
	a.loopCounter++
	id := ast.LoopID(a.loopCounter)
	a.loopStack = append(a.loopStack, id)
	return id
}

func (a *Analyzer) popLoop() {
	a.loopStack = a.loopStack[:len(a.loopStack)-1]
}

// -- definitions --

func (a *Analyzer) analyzeDefinition(def ast.Stmt) bool {
	switch d := def.(type) {
	case *ast.FunctionDef:
		return a.analyzeDefinitionFunction(d)
	case *ast.VariableDef:
		return a.analyzeDefinitionVariable(d)
	case *ast.ClassDef:
		return a.analyzeDefinitionClass(d)
	}
	return true
}

func (a *Analyzer) analyzeDefinitionFunction(fn *ast.FunctionDef) bool {
	name := fn.NameToken.Lexeme
	if _, exists := a.globalTable[name]; exists {
		a.sink.Error(fmt.Sprintf("Function '%s' is already defined", name), fn.NameToken.Position)
		return false
	}

	paramTypes := make([]*types.Type, len(fn.Parameters))
	for i, p := range fn.Parameters {
		paramTypes[i] = p.Type
	}
	fnType := types.Fn(fn.ReturnType, paramTypes)
	a.globalTable[name] = Symbol{MangledName: name, Type: fnType}

	a.pushScope()
	ok := a.analyzeParameters(fn.Parameters)

	prevFunction := a.currentFunction
	a.currentFunction = fnType
	if !a.analyzeStatement(fn.Body) {
		ok = false
	}
	a.currentFunction = prevFunction
	a.popScope()
	return ok
}

func (a *Analyzer) analyzeParameters(params []ast.Parameter) bool {
	ok := true
	seen := make(map[string]bool)
	for i := range params {
		p := &params[i]
		original := p.NameToken.Lexeme
		if _, isGlobal := a.globalTable[original]; isGlobal {
			a.sink.Warning(fmt.Sprintf("Parameter '%s' shadows a global name", original), p.NameToken.Position)
		}
		if seen[original] {
			a.sink.Error(fmt.Sprintf("Parameter '%s' is already defined", original), p.NameToken.Position)
			ok = false
			continue
		}
		seen[original] = true

		mangled := a.createUnique(original)
		p.NameToken.Lexeme = mangled
		a.topScope()[original] = Symbol{MangledName: mangled, Type: p.Type}
	}
	return ok
}

func (a *Analyzer) analyzeDefinitionVariable(v *ast.VariableDef) bool {
	name := v.NameToken.Lexeme

	if v.IsGlobal {
		if _, exists := a.globalTable[name]; exists {
			a.sink.Error(fmt.Sprintf("Global variable '%s' is already defined", name), v.NameToken.Position)
			return false
		}
	} else {
		if _, exists := a.topScope()[name]; exists {
			a.sink.Error(fmt.Sprintf("Variable '%s' is already defined", name), v.NameToken.Position)
			return false
		}
	}

	ok := true
	resolvedType := v.DeclaredType

	if v.Initializer != nil {
		if !a.analyzeExpression(v.Initializer) {
			ok = false
		}
		if list, isEmptyArray := v.Initializer.(*ast.ArrayList); isEmptyArray && len(list.Elements) == 0 {
			if types.IsEmpty(v.DeclaredType) {
				a.sink.Error("Cannot infer type of empty array literal", list.Pos())
				ok = false
			} else if v.DeclaredType.Kind != types.KindArray {
				a.sink.Error(fmt.Sprintf("Cannot assign type 'array' to variable of type '%s'", v.DeclaredType), list.Pos())
				ok = false
			} else {
				list.SetExprType(v.DeclaredType)
				resolvedType = v.DeclaredType
			}
		} else if types.IsEmpty(v.DeclaredType) {
			resolvedType = v.Initializer.ExprType()
		} else if !types.Equal(v.DeclaredType, v.Initializer.ExprType()) {
			a.sink.Error(fmt.Sprintf("Cannot assign type '%s' to variable of type '%s'", v.Initializer.ExprType(), v.DeclaredType), v.Position)
			ok = false
		}
	} else if types.IsEmpty(v.DeclaredType) {
		a.sink.Error(fmt.Sprintf("Variable '%s' has no declared type and no initializer", name), v.Position)
		ok = false
	}

	v.DeclaredType = resolvedType
	sym := Symbol{MangledName: name, Type: resolvedType}
	if v.IsGlobal {
		a.globalTable[name] = sym
	} else {
		a.topScope()[name] = sym
	}
	return ok
}

func (a *Analyzer) analyzeDefinitionClass(cd *ast.ClassDef) bool {
	a.userTypes[cd.NameToken.Lexeme] = true
	ok := true
	for _, member := range cd.Members {
		if fn, isFunc := member.Def.(*ast.FunctionDef); isFunc {
			a.sink.Error("Class method bodies are not supported", fn.Pos())
			ok = false
		}
	}
	return ok
}

// -- statements --

func (a *Analyzer) analyzeStatement(stmt ast.Stmt) bool {
	switch s := stmt.(type) {
	case *ast.NullStmt:
		return true
	case *ast.CompoundStmt:
		return a.analyzeStatementCompound(s)
	case *ast.ExpressionStmt:
		return a.analyzeStatementExpression(s)
	case *ast.ReturnStmt:
		return a.analyzeStatementReturn(s)
	case *ast.IfStmt:
		return a.analyzeStatementIf(s)
	case *ast.WhileStmt:
		return a.analyzeStatementWhile(s)
	case *ast.LoopStmt:
		return a.analyzeStatementLoop(s)
	case *ast.BreakStmt:
		return a.analyzeStatementBreak(s)
	case *ast.ContinueStmt:
		return a.analyzeStatementContinue(s)
	case *ast.VariableDef:
		return a.analyzeDefinitionVariable(s)
	case *ast.FunctionDef:
		return a.analyzeDefinitionFunction(s)
	case *ast.ClassDef:
		return a.analyzeDefinitionClass(s)
	}
	return true
}

func (a *Analyzer) analyzeStatementCompound(s *ast.CompoundStmt) bool {
	a.pushScope()
	ok := true
	for _, child := range s.Statements {
		if !a.analyzeStatement(child) {
			ok = false
		}
	}
	a.popScope()
	return ok
}

func (a *Analyzer) analyzeStatementExpression(s *ast.ExpressionStmt) bool {
	ok := a.analyzeExpression(s.Expression)
	switch s.Expression.(type) {
	case *ast.Call, *ast.Assignment, *ast.MemberAccess:
	default:
		a.sink.Warning("Unused expression", s.Position)
	}
	return ok
}

func (a *Analyzer) analyzeStatementReturn(s *ast.ReturnStmt) bool {
	if a.currentFunction == nil {
		a.sink.Error("Cannot return outside of a function", s.Token.Position)
		return false
	}

	ok := true
	exprType := types.NullType
	if s.Expression != nil {
		if !a.analyzeExpression(s.Expression) {
			ok = false
		}
		exprType = s.Expression.ExprType()
	}

	returnType := a.currentFunction.Return
	if !types.Equal(exprType, returnType) {
		a.sink.Error(fmt.Sprintf("Cannot return type '%s' from a function which returns type '%s'", exprType, returnType), s.Token.Position)
		ok = false
	}
	return ok
}

func (a *Analyzer) analyzeStatementIf(s *ast.IfStmt) bool {
	ok := a.analyzeExpression(s.Condition)
	if !a.analyzeStatement(s.Then) {
		ok = false
	}
	if s.Else != nil {
		if !a.analyzeStatement(s.Else) {
			ok = false
		}
	}
	return ok
}

func (a *Analyzer) analyzeStatementWhile(s *ast.WhileStmt) bool {
	ok := a.analyzeExpression(s.Condition)
	s.ID = a.pushLoop()
	if !a.analyzeStatement(s.Body) {
		ok = false
	}
	a.popLoop()
	return ok
}

func (a *Analyzer) analyzeStatementLoop(s *ast.LoopStmt) bool {
	s.ID = a.pushLoop()
	ok := a.analyzeStatement(s.Body)
	a.popLoop()
	return ok
}

func (a *Analyzer) analyzeStatementBreak(s *ast.BreakStmt) bool {
	if len(a.loopStack) == 0 {
		a.sink.Error("Cannot use break outside of a loop", s.Token.Position)
		return false
	}
	s.LoopID = a.loopStack[len(a.loopStack)-1]
	return true
}

func (a *Analyzer) analyzeStatementContinue(s *ast.ContinueStmt) bool {
	if len(a.loopStack) == 0 {
		a.sink.Error("Cannot use continue outside of a loop", s.Token.Position)
		return false
	}
	s.LoopID = a.loopStack[len(a.loopStack)-1]
	return true
}

// -- expressions --

func (a *Analyzer) analyzeExpression(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		e.SetExprType(types.I32Type)
		return true
	case *ast.FloatLiteral:
		e.SetExprType(types.F32Type)
		return true
	case *ast.StringLiteral:
		e.SetExprType(types.StringType)
		return true
	case *ast.CharacterLiteral:
		e.SetExprType(types.CharacterType)
		return true
	case *ast.ArrayList:
		return a.analyzeExpressionArray(e)
	case *ast.UnaryOp:
		return a.analyzeExpressionUnary(e)
	case *ast.BinaryOp:
		return a.analyzeExpressionBinary(e)
	case *ast.Assignment:
		return a.analyzeExpressionAssignment(e)
	case *ast.Identifier:
		return a.analyzeExpressionIdentifier(e)
	case *ast.Call:
		return a.analyzeExpressionCall(e)
	case *ast.MemberAccess:
		return a.analyzeExpressionMemberAccess(e)
	}
	return true
}

func (a *Analyzer) analyzeExpressionArray(e *ast.ArrayList) bool {
	if len(e.Elements) == 0 {
		e.SetExprType(types.Arr(types.Empty))
		return true
	}
	ok := a.analyzeExpression(e.Elements[0])
	elemType := e.Elements[0].ExprType()
	for _, elem := range e.Elements[1:] {
		if !a.analyzeExpression(elem) {
			ok = false
			continue
		}
		if !types.Equal(elemType, elem.ExprType()) {
			a.sink.Error("Array elements must all have the same type", elem.Pos())
			ok = false
		}
	}
	e.SetExprType(types.Arr(elemType))
	return ok
}

func (a *Analyzer) analyzeExpressionUnary(e *ast.UnaryOp) bool {
	ok := a.analyzeExpression(e.Expression)
	e.SetExprType(e.Expression.ExprType())
	return ok
}

func (a *Analyzer) analyzeExpressionBinary(e *ast.BinaryOp) bool {
	ok := a.analyzeExpression(e.Left)
	if !a.analyzeExpression(e.Right) {
		ok = false
	}
	leftType, rightType := e.Left.ExprType(), e.Right.ExprType()
	if ok && !types.Equal(leftType, rightType) {
		a.sink.Error(fmt.Sprintf("Cannot apply binary operator '%s' to types '%s' and '%s'", e.Op.Lexeme, leftType, rightType), e.Op.Position)
		ok = false
	}
	e.SetExprType(leftType)
	return ok
}

func isLvalueShaped(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Identifier, *ast.Call, *ast.MemberAccess:
		return true
	}
	return false
}

func (a *Analyzer) analyzeExpressionAssignment(e *ast.Assignment) bool {
	ok := true
	if !isLvalueShaped(e.Lvalue) {
		a.sink.Error("Cannot assign to non-lvalues", e.Op.Position)
		ok = false
	}
	if !a.analyzeExpression(e.Lvalue) {
		ok = false
	}
	if !a.analyzeExpression(e.Rvalue) {
		ok = false
	}
	lvalueType, rvalueType := e.Lvalue.ExprType(), e.Rvalue.ExprType()
	if ok && !types.Equal(lvalueType, rvalueType) {
		a.sink.Error(fmt.Sprintf("Cannot assign type '%s' to variable of type '%s'", rvalueType, lvalueType), e.Op.Position)
		ok = false
	}
	e.SetExprType(lvalueType)
	return ok
}

func (a *Analyzer) analyzeExpressionIdentifier(e *ast.Identifier) bool {
	name := e.NameToken.Lexeme
	if sym, found := a.findLocal(name); found {
		e.NameToken.Lexeme = sym.MangledName
		e.SetExprType(sym.Type)
		return true
	}
	if sym, found := a.globalTable[name]; found {
		e.SetExprType(sym.Type)
		return true
	}
	a.sink.Error(fmt.Sprintf("Undefined name '%s'", name), e.NameToken.Position)
	e.SetExprType(types.Empty)
	return false
}

func (a *Analyzer) analyzeExpressionCall(e *ast.Call) bool {
	name := e.FuncToken.Lexeme
	sym, found := a.globalTable[name]
	if !found {
		a.sink.Error(fmt.Sprintf("Undefined name '%s'", name), e.FuncToken.Position)
		e.SetExprType(types.Empty)
		for _, arg := range e.Args {
			a.analyzeExpression(arg)
		}
		return false
	}
	if sym.Type.Kind != types.KindFunction {
		a.sink.Error(fmt.Sprintf("'%s' is not a function", name), e.FuncToken.Position)
		e.SetExprType(types.Empty)
		for _, arg := range e.Args {
			a.analyzeExpression(arg)
		}
		return false
	}

	ok := true
	for _, arg := range e.Args {
		if !a.analyzeExpression(arg) {
			ok = false
		}
	}

	if len(e.Args) != len(sym.Type.Parameters) {
		a.sink.Error(fmt.Sprintf("Expected %d arguments but got %d", len(sym.Type.Parameters), len(e.Args)), e.Pos())
		ok = false
	} else {
		for i, arg := range e.Args {
			if !types.Equal(arg.ExprType(), sym.Type.Parameters[i]) {
				a.sink.Error(fmt.Sprintf("Cannot pass argument of type '%s' where type '%s' expected", arg.ExprType(), sym.Type.Parameters[i]), arg.Pos())
				ok = false
			}
		}
	}

	e.SetExprType(sym.Type.Return)
	return ok
}

// analyzeExpressionMemberAccess does not resolve member types (spec.md
// §4.3: "this version does not resolve member types"); it checks that
// the base is lvalue-shaped and, lacking a member type table, carries
// the base's own type forward so the node still satisfies the
// non-Empty expression-type invariant (spec.md §8 invariant 3).
func (a *Analyzer) analyzeExpressionMemberAccess(e *ast.MemberAccess) bool {
	ok := true
	if !isLvalueShaped(e.Base) {
		a.sink.Error("Cannot access member of non-lvalue", e.Op.Position)
		ok = false
	}
	if !a.analyzeExpression(e.Base) {
		ok = false
	}
	e.SetExprType(e.Base.ExprType())
	return ok
}
