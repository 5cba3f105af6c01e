// internal/engine/interpreter/blocks.go
package interpreter

import "github.com/stridr-dev/stridr/api/schemas"

// scanBlock locates the boundaries of the conditional block opened at
// ifIndex. The forward scan tracks nesting depth so only a same-depth else or
// endif terminates the block: nested "if" increments, nested "endif"
// decrements. Returns elseIndex == -1 when the block has no else branch, and
// endifIndex == len(steps) when the block is unterminated (the block then
// runs to the end of the case).
func scanBlock(steps []schemas.TestStep, ifIndex int) (elseIndex, endifIndex int) {
	elseIndex = -1
	depth := 0
	for i := ifIndex + 1; i < len(steps); i++ {
		switch steps[i].Action {
		case schemas.ActionIf:
			depth++
		case schemas.ActionElse:
			if depth == 0 && elseIndex == -1 {
				elseIndex = i
			}
		case schemas.ActionEndIf:
			if depth == 0 {
				return elseIndex, i
			}
			depth--
		}
	}
	return elseIndex, len(steps)
}
