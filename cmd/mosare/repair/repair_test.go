package repair

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// numbered builds n non-empty fields f0..f(n-1)
func numbered(n int) []string {
	fields := make([]string, n)
	for i := range fields {
		fields[i] = fmt.Sprintf("f%d", i)
	}
	return fields
}

func nonEmpty(fields []string) []string {
	var out []string
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func TestRepair_ExactWidthIsIdentity(t *testing.T) {
	s := DefaultSchema()
	in := numbered(DefaultWidth)
	in[44] = ""
	in[45] = ""

	got, outcome := s.Repair(in)

	assert.Equal(t, in, got)
	assert.False(t, outcome.Changed())
	assert.Equal(t, DefaultWidth, outcome.Observed)
}

func TestRepair_RemovesEmptiesInsideZone(t *testing.T) {
	s := DefaultSchema()
	in := numbered(65)
	in[44] = ""
	in[46] = ""

	got, outcome := s.Repair(in)

	require.Len(t, got, DefaultWidth)
	assert.Equal(t, 2, outcome.Removed)
	assert.Zero(t, outcome.Padded)
	assert.Zero(t, outcome.Truncated)

	want := append(append(append([]string{}, in[:44]...), in[45]), in[47:]...)
	assert.Equal(t, want, got)
	assert.Equal(t, "f45", got[44])
	assert.Equal(t, "f64", got[62])
}

func TestRepair_PreservesOrderOfNonEmptyFields(t *testing.T) {
	s := DefaultSchema()
	for k := 1; k <= 5; k++ {
		in := numbered(DefaultWidth + k)
		for i := 0; i < k; i++ {
			in[DefaultZoneStart+i] = ""
		}

		got, _ := s.Repair(in)

		require.Len(t, got, DefaultWidth, "k=%d", k)
		assert.Equal(t, nonEmpty(in), nonEmpty(got), "k=%d", k)
	}
}

func TestRepair_OnlyFirstSurplusEmptiesAreRemoved(t *testing.T) {
	s := DefaultSchema()
	in := numbered(64)
	in[43] = ""
	in[45] = ""
	in[47] = ""

	got, outcome := s.Repair(in)

	require.Len(t, got, DefaultWidth)
	assert.Equal(t, 1, outcome.Removed)
	// 43 dropped, 45 and 47 shift to 44 and 46
	assert.Equal(t, "f44", got[43])
	assert.Equal(t, "", got[44])
	assert.Equal(t, "", got[46])
}

func TestRepair_EmptiesOutsideZoneAreKept(t *testing.T) {
	s := DefaultSchema()
	in := numbered(64)
	in[42] = ""
	in[48] = ""

	got, outcome := s.Repair(in)

	require.Len(t, got, DefaultWidth)
	assert.Zero(t, outcome.Removed)
	assert.Equal(t, 1, outcome.Truncated)
	assert.Equal(t, in[:DefaultWidth], got)
}

func TestRepair_ShortfallTruncatesTrailingFields(t *testing.T) {
	s := DefaultSchema()
	in := numbered(66)
	in[44] = ""

	got, outcome := s.Repair(in)

	require.Len(t, got, DefaultWidth)
	assert.Equal(t, 1, outcome.Removed)
	assert.Equal(t, 2, outcome.Truncated)
	assert.Equal(t, "f63", got[62])
}

func TestRepair_PadsShortRows(t *testing.T) {
	s := DefaultSchema()
	in := numbered(10)

	got, outcome := s.Repair(in)

	require.Len(t, got, DefaultWidth)
	assert.Equal(t, in, got[:10])
	assert.Equal(t, DefaultWidth-10, outcome.Padded)
	for _, f := range got[10:] {
		assert.Empty(t, f)
	}
}

func TestRepair_Idempotent(t *testing.T) {
	s := DefaultSchema()
	inputs := [][]string{numbered(3), numbered(70), numbered(DefaultWidth)}
	inputs[1][43], inputs[1][44] = "", ""

	for _, in := range inputs {
		once, _ := s.Repair(in)
		twice, outcome := s.Repair(once)
		assert.Equal(t, once, twice)
		assert.False(t, outcome.Changed())
	}
}

func TestRepair_DoesNotMutateInput(t *testing.T) {
	s := DefaultSchema()
	in := numbered(65)
	in[44], in[46] = "", ""
	snapshot := append([]string{}, in...)

	s.Repair(in)

	assert.Equal(t, snapshot, in)
}

func TestRepairLine(t *testing.T) {
	s := Schema{Width: 4, ZoneStart: 1, ZoneEnd: 3}

	got, outcome := s.RepairLine("a||b|c|d")

	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	assert.Equal(t, 1, outcome.Removed)

	got, _ = s.RepairLine(strings.Join([]string{"a", "b"}, Delimiter))
	assert.Equal(t, []string{"a", "b", "", ""}, got)
}

func TestSchema_Validate(t *testing.T) {
	assert.NoError(t, DefaultSchema().Validate())
	assert.Error(t, Schema{Width: 0}.Validate())
	assert.Error(t, Schema{Width: 5, ZoneStart: 4, ZoneEnd: 2}.Validate())
	assert.Error(t, Schema{Width: 5, ZoneStart: -1, ZoneEnd: 2}.Validate())
}
