// internal/engine/interpreter/blocks_test.go
package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stridr-dev/stridr/api/schemas"
)

func steps(actions ...schemas.Action) []schemas.TestStep {
	out := make([]schemas.TestStep, 0, len(actions))
	for _, a := range actions {
		out = append(out, schemas.TestStep{Action: a})
	}
	return out
}

func TestScanBlockSimple(t *testing.T) {
	s := steps(schemas.ActionIf, schemas.ActionClick, schemas.ActionElse, schemas.ActionClick, schemas.ActionEndIf)
	elseIdx, endifIdx := scanBlock(s, 0)
	assert.Equal(t, 2, elseIdx)
	assert.Equal(t, 4, endifIdx)
}

func TestScanBlockNoElse(t *testing.T) {
	s := steps(schemas.ActionIf, schemas.ActionClick, schemas.ActionEndIf)
	elseIdx, endifIdx := scanBlock(s, 0)
	assert.Equal(t, -1, elseIdx)
	assert.Equal(t, 2, endifIdx)
}

func TestScanBlockNestedTwoLevels(t *testing.T) {
	// if / if / else / endif / else / if / endif / endif
	s := steps(
		schemas.ActionIf,    // 0: outer
		schemas.ActionIf,    // 1: inner
		schemas.ActionElse,  // 2: inner else
		schemas.ActionEndIf, // 3: inner end
		schemas.ActionElse,  // 4: outer else
		schemas.ActionIf,    // 5: nested in else branch
		schemas.ActionEndIf, // 6
		schemas.ActionEndIf, // 7: outer end
	)

	elseIdx, endifIdx := scanBlock(s, 0)
	assert.Equal(t, 4, elseIdx, "outer else must skip the nested block's else")
	assert.Equal(t, 7, endifIdx)

	elseIdx, endifIdx = scanBlock(s, 1)
	assert.Equal(t, 2, elseIdx)
	assert.Equal(t, 3, endifIdx)
}

func TestScanBlockUnterminated(t *testing.T) {
	s := steps(schemas.ActionIf, schemas.ActionClick, schemas.ActionClick)
	elseIdx, endifIdx := scanBlock(s, 0)
	assert.Equal(t, -1, elseIdx)
	assert.Equal(t, len(s), endifIdx, "unterminated block runs to the end of the case")
}
