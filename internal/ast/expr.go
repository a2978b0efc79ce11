package ast

// Expr is the closed set of expression forms appearing in slice
// filters, model formulas, aggregate values and derived columns.
type Expr interface {
	Node
	isExpr()
}

type IntLit struct {
	Position Position
	Value    int64
	Raw      string
}

func (l *IntLit) Pos() Position { return l.Position }
func (l *IntLit) isExpr()       {}

type FloatLit struct {
	Position Position
	Value    float64
	Raw      string
}

func (l *FloatLit) Pos() Position { return l.Position }
func (l *FloatLit) isExpr()       {}

type StringLit struct {
	Position Position
	Value    string
}

func (l *StringLit) Pos() Position { return l.Position }
func (l *StringLit) isExpr()       {}

type BoolLit struct {
	Position Position
	Value    bool
}

func (l *BoolLit) Pos() Position { return l.Position }
func (l *BoolLit) isExpr()       {}

// VarRef names a component (or concept) in the input's resolved shape.
type VarRef struct {
	Position Position
	Ident    string
}

func (v *VarRef) Pos() Position { return v.Position }
func (v *VarRef) isExpr()       {}

type UnaryExpr struct {
	Position Position
	Op       string
	Operand  Expr
}

func (u *UnaryExpr) Pos() Position { return u.Position }
func (u *UnaryExpr) isExpr()       {}

type BinaryExpr struct {
	Position Position
	Op       string
	Left     Expr
	Right    Expr
}

func (b *BinaryExpr) Pos() Position { return b.Position }
func (b *BinaryExpr) isExpr()       {}

type CallExpr struct {
	Position Position
	Func     string
	Args     []Expr
}

func (c *CallExpr) Pos() Position { return c.Position }
func (c *CallExpr) isExpr()       {}
