package klox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkWriteKeepsCodeAndLinesInLockstep(t *testing.T) {
	var c Chunk
	c.Write(byte(OpNil), 1)
	c.Write(byte(OpTrue), 1)
	c.Write(byte(OpReturn), 2)

	assert.Len(t, c.Code, 3)
	assert.Len(t, c.Lines, len(c.Code), "byte count must equal line-map length")
	assert.Equal(t, []int{1, 1, 2}, c.Lines)
}

func TestChunkAddConstant(t *testing.T) {
	var c Chunk
	idx := c.AddConstant(NumberValue(3.14))
	assert.Equal(t, 0, idx)
	assert.Equal(t, 3.14, c.Constants[idx].AsNumber())

	idx2 := c.AddConstant(NumberValue(2.71))
	assert.Equal(t, 1, idx2)
}
