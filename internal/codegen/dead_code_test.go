package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kiln/internal/sema"
)

func TestUnreachableBlocksRemoved(t *testing.T) {
	cfg := singleBlock(map[int]sema.Type{0: boolTy},
		&BranchCond{Cond: variable(boolTy, 0), True: 2, False: 3},
	)
	cfg.SetBasicBlock(cfg.NewBlock("dead"))
	cfg.Add(&Branch{Block: 3})
	cfg.SetBasicBlock(cfg.NewBlock("then"))
	cfg.Add(&Branch{Block: 3})
	cfg.SetBasicBlock(cfg.NewBlock("endif"))
	cfg.Add(&Return{})

	require.True(t, (&DeadCodeElimination{}).Apply(cfg, nil))

	require.Len(t, cfg.Blocks, 3)
	assert.Equal(t, "then", cfg.Blocks[1].Name)
	assert.Equal(t, &BranchCond{Cond: variable(boolTy, 0), True: 1, False: 2}, cfg.Blocks[0].Instrs[0])
	assert.Equal(t, &Branch{Block: 2}, cfg.Blocks[1].Instrs[0])
	assert.NoError(t, Verify(cfg))
}

func TestSwitchTargetsRenumbered(t *testing.T) {
	cfg := singleBlock(map[int]sema.Type{0: uint8Ty},
		&Switch{
			Cond:    variable(uint8Ty, 0),
			Cases:   []SwitchCase{{Value: num(uint8Ty, 1), Block: 2}},
			Default: 3,
		},
	)
	for _, name := range []string{"dead", "one", "default"} {
		cfg.SetBasicBlock(cfg.NewBlock(name))
		cfg.Add(&Return{})
	}

	require.True(t, (&DeadCodeElimination{}).Apply(cfg, nil))

	sw := cfg.Blocks[0].Instrs[0].(*Switch)
	assert.Equal(t, 1, sw.Cases[0].Block)
	assert.Equal(t, 2, sw.Default)
}

func TestAllReachableUnchanged(t *testing.T) {
	cfg := singleBlock(nil, &Branch{Block: 1})
	cfg.SetBasicBlock(cfg.NewBlock("loop"))
	cfg.Add(&Branch{Block: 1})

	assert.False(t, (&DeadCodeElimination{}).Apply(cfg, nil))
	assert.Len(t, cfg.Blocks, 2)
}

func TestDeadCodeEliminationIdempotent(t *testing.T) {
	cfg := singleBlock(map[int]sema.Type{0: boolTy},
		&BranchCond{Cond: variable(boolTy, 0), True: 3, False: 4},
	)
	for _, name := range []string{"dead", "also_dead", "then", "else"} {
		cfg.SetBasicBlock(cfg.NewBlock(name))
		cfg.Add(&Return{})
	}

	require.True(t, (&DeadCodeElimination{}).Apply(cfg, nil))
	first := PrintCFG(cfg)
	assert.False(t, (&DeadCodeElimination{}).Apply(cfg, nil))
	assert.Equal(t, first, PrintCFG(cfg))
	require.Len(t, cfg.Blocks, 3)
}
