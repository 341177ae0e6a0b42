package codegen

// loopScope is the break and continue target of an enclosing loop
type loopScope struct {
	breakBlock    int
	continueBlock int
	broke         bool
}

// loopScopes is the stack of loops enclosing the statement being lowered
type loopScopes struct {
	scopes []*loopScope
}

func (l *loopScopes) enter(breakBlock, continueBlock int) {
	l.scopes = append(l.scopes, &loopScope{breakBlock: breakBlock, continueBlock: continueBlock})
}

// leave pops the innermost loop and reports whether a break left it
func (l *loopScopes) leave() bool {
	top := l.scopes[len(l.scopes)-1]
	l.scopes = l.scopes[:len(l.scopes)-1]
	return top.broke
}

func (l *loopScopes) innermost() *loopScope {
	if len(l.scopes) == 0 {
		return nil
	}
	return l.scopes[len(l.scopes)-1]
}
