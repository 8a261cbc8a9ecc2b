package history

import "time"

// chain is the in-memory operation sequence. Operations before cur are
// applied; ops[cur], when cur < len(ops), is the most recently undone one.
// cur == len(ops) means nothing is undone.
type chain struct {
	ops []Operation
	cur int
}

func newChain(ops []Operation) *chain {
	return &chain{ops: ops, cur: len(ops)}
}

func (c *chain) count() int { return len(c.ops) }

// applied returns the operations that are currently in effect.
func (c *chain) applied() []Operation { return c.ops[:c.cur] }

// record appends op, discarding the redo branch first.
func (c *chain) record(op Operation) {
	c.truncate()
	c.ops = append(c.ops, op)
	c.cur = len(c.ops)
}

// truncate drops every undone operation.
func (c *chain) truncate() {
	for i := c.cur; i < len(c.ops); i++ {
		c.ops[i] = nil
	}
	c.ops = c.ops[:c.cur]
}

func (c *chain) canUndo() bool { return c.cur > 0 }

func (c *chain) canRedo() bool { return c.cur < len(c.ops) }

func (c *chain) undo() (Operation, error) {
	if !c.canUndo() {
		return nil, ErrNothingToUndo
	}
	c.cur--
	return c.ops[c.cur], nil
}

func (c *chain) redo() (Operation, error) {
	if !c.canRedo() {
		return nil, ErrNothingToRedo
	}
	op := c.ops[c.cur]
	c.cur++
	return op, nil
}

// countBefore returns how many head operations are older than cutoff.
func (c *chain) countBefore(cutoff time.Time) int {
	n := 0
	for n < len(c.ops) && c.ops[n].Timestamp().Before(cutoff) {
		n++
	}
	return n
}

// dropHead removes the first n operations. If the current operation is
// removed, the new head becomes current.
func (c *chain) dropHead(n int) {
	if n <= 0 {
		return
	}
	if n > len(c.ops) {
		n = len(c.ops)
	}
	rest := make([]Operation, len(c.ops)-n)
	copy(rest, c.ops[n:])
	c.ops = rest
	c.cur -= n
	if c.cur < 0 {
		c.cur = 0
	}
}

func (c *chain) reset(ops []Operation) {
	c.ops = ops
	c.cur = len(ops)
}

// snapshot returns a copy of the operation slice.
func (c *chain) snapshot() []Operation {
	out := make([]Operation, len(c.ops))
	copy(out, c.ops)
	return out
}
