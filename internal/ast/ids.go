package ast

// Arena handles. Index 0 is reserved as the invalid sentinel in every arena,
// so the zero value of any ID means "absent".
type (
	DeclID     uint32
	ExprID     uint32
	StmtID     uint32
	TypeExprID uint32
)

const (
	NoDeclID     DeclID     = 0
	NoExprID     ExprID     = 0
	NoStmtID     StmtID     = 0
	NoTypeExprID TypeExprID = 0
)

func (id DeclID) IsValid() bool     { return id != NoDeclID }
func (id ExprID) IsValid() bool     { return id != NoExprID }
func (id StmtID) IsValid() bool     { return id != NoStmtID }
func (id TypeExprID) IsValid() bool { return id != NoTypeExprID }
